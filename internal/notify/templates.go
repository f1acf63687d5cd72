package notify

import (
	"bytes"
	"embed"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tplPlacedCustomer = "placed_customer.html"
	tplPlacedAdmin    = "placed_admin.html"
	tplConfirmed      = "confirmed.html"
	tplShipping       = "shipping.html"
	tplShipped        = "shipped.html"
	tplDelivered      = "delivered.html"
)

var funcs = template.FuncMap{
	"money": money,
	"lineTotal": func(it orders.Item) string {
		return money(it.DiscountedPrice * int64(it.Quantity))
	},
}

// money renders 1250000 as "1,250,000".
func money(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func parseTemplates() (map[string]*template.Template, error) {
	names := []string{tplPlacedCustomer, tplPlacedAdmin, tplConfirmed, tplShipping, tplShipped, tplDelivered}
	out := make(map[string]*template.Template, len(names))
	for _, n := range names {
		t, err := template.New(n).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+n)
		if err != nil {
			return nil, err
		}
		out[n] = t
	}
	return out, nil
}

type mailData struct {
	Order   orders.Order
	Message string
}

func render(t *template.Template, d mailData) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
