package census

import (
	"net/url"
	"strings"

	"github.com/sells-group/pn-weights/internal/model"
)

// RequestURL builds the block-level query for p in j:
//
//	{base}?get={vars}&for=block:*&in=state:{S}+county:{C}[&key={apiKey}]
//
// The "+" between the two "in" predicates is literal; the API reads it as a
// separator.
func RequestURL(p Profile, j model.Jurisdiction, apiKey string) string {
	j = j.Normalized()
	var b strings.Builder
	b.WriteString(p.BaseURL)
	if strings.Contains(p.BaseURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString("get=")
	b.WriteString(strings.Join(p.Variables, ","))
	b.WriteString("&for=block:*&in=state:")
	b.WriteString(j.State)
	b.WriteString("+county:")
	b.WriteString(j.County)
	if apiKey != "" {
		b.WriteString("&key=")
		b.WriteString(url.QueryEscape(apiKey))
	}
	return b.String()
}
