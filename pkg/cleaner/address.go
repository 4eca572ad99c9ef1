package cleaner

import (
	"strings"

	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// ParseAddress splits "street, city, state, zipcode" on commas.
//
// With more than four parts the trailing three are city, state and zipcode
// and everything before them is the street. With fewer than four parts the
// components are filled positionally and the rest left empty. ok is false
// unless all four components are non-empty.
func ParseAddress(s string) (model.Address, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Address{}, false
	}

	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var addr model.Address
	if n := len(parts); n >= 4 {
		addr = model.Address{
			Street:  strings.Join(parts[:n-3], ", "),
			City:    parts[n-3],
			State:   parts[n-2],
			Zipcode: parts[n-1],
		}
	} else {
		fields := []*string{&addr.Street, &addr.City, &addr.State, &addr.Zipcode}
		for i, part := range parts {
			*fields[i] = part
		}
	}

	ok := addr.Street != "" && addr.City != "" && addr.State != "" && addr.Zipcode != ""
	return addr, ok
}

func formatAddress(a model.Address) string {
	return strings.Join([]string{a.Street, a.City, a.State, a.Zipcode}, ",")
}
