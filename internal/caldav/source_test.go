package caldav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

var plus2 = time.FixedZone("UTC+2", 2*3600)

const objectData = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:lec-1\r\nDTSTAMP:20240101T000000Z\r\nSUMMARY:Opening lecture\r\n" +
	"CATEGORIES:ACAD\r\nDTSTART:20240902T070000Z\r\nDTEND:20240902T083000Z\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nUID:hol-1\r\nDTSTAMP:20240101T000000Z\r\nSUMMARY:Reading week\r\n" +
	"DTSTART;VALUE=DATE:20241028\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestEventsFromCalendar(t *testing.T) {
	cal, err := ical.NewDecoder(strings.NewReader(objectData)).Decode()
	if err != nil {
		t.Fatal(err)
	}
	events := EventsFromCalendar(cal, plus2)
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	lec := events[0]
	if lec.ID != "lec-1" || lec.Category != "academic" || lec.Start != "2024-09-02T09:00:00" || lec.End != "2024-09-02T10:30:00" {
		t.Errorf("lecture = %+v", lec)
	}
	hol := events[1]
	if hol.Date != "2024-10-28" || hol.Start != "" || hol.Category != "general" {
		t.Errorf("holiday = %+v", hol)
	}
}

func TestFetchEventsForYear(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "prof" || p != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != "REPORT" || r.URL.Path != "/cal/" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/cal/lec-1.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"1"</d:getetag>
        <c:calendar-data>`+objectData+`</c:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
	}))
	defer srv.Close()

	src, err := New(Config{Endpoint: srv.URL, Username: "prof", Password: "pw", CalendarPath: "/cal/"}, plus2)
	if err != nil {
		t.Fatal(err)
	}
	events, err := src.FetchEventsForYear(context.Background(), 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("events = %+v", events)
	}
	if !strings.Contains(body, "VEVENT") || !strings.Contains(body, "time-range") {
		t.Errorf("query body = %s", body)
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("empty endpoint accepted")
	}
}
