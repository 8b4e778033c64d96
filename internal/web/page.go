package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"campuscal/internal/calendar"
	"campuscal/internal/category"
	"campuscal/internal/layout"
	"campuscal/internal/timeparse"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageRenderer struct {
	tmpl *template.Template
}

type pageData struct {
	Tree calendar.Tree
}

func newPageRenderer() *pageRenderer {
	funcs := template.FuncMap{
		"dict":         dict,
		"hour":         func(h int) string { return fmt.Sprintf("%02d:00", h) },
		"clock":        func(t time.Time) string { return t.Format("15:04") },
		"dateKey":      timeparse.DateKey,
		"shortWeekday": func(d time.Weekday) string { return d.String()[:3] },
		"monthNum":     func(m time.Month) int { return int(m) },
		"chipStyle":    chipStyle,
		"swatch":       swatch,
		"blockStyle":   blockStyle,
		"topStyle":     topStyle,
	}
	tmpl := template.Must(template.New("calendar.html").Funcs(funcs).ParseFS(templateFS, "templates/calendar.html"))
	return &pageRenderer{tmpl: tmpl}
}

func (p *pageRenderer) render(tree calendar.Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "calendar.html", pageData{Tree: tree}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd argument count")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// The style helpers only ever interpolate registry colours and numbers.

func chipStyle(d category.Descriptor) template.CSS {
	return template.CSS(fmt.Sprintf("background:%s;color:%s;", d.LightFill, d.Text))
}

func swatch(d category.Descriptor) template.CSS {
	return template.CSS("background:" + d.Fill + ";")
}

func blockStyle(b layout.Block) template.CSS {
	d := b.Event.Category
	return template.CSS(fmt.Sprintf("top:%.3f%%;height:%.3f%%;left:%.3f%%;width:%.3f%%;background:%s;border-color:%s;color:%s;",
		b.Top, b.Height, b.Left, b.Width, d.LightFill, d.Border, d.Text))
}

func topStyle(v *float64) template.CSS {
	if v == nil {
		return ""
	}
	return template.CSS(fmt.Sprintf("top:%.3f%%;", *v))
}
