package cleaner

import (
	"fmt"
	"strings"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// ParseContactInfo parses the serialized contact_info mapping. Keys are
// matched case-insensitively and unknown keys are ignored. An empty input
// yields an empty ContactInfo.
func ParseContactInfo(s string) (model.ContactInfo, error) {
	fields, err := converter.ParseLiteralMap(s)
	if err != nil {
		return model.ContactInfo{}, fmt.Errorf("failed to parse contact info: %w", err)
	}

	var info model.ContactInfo
	for key, value := range fields {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "email":
			info.Email = strings.TrimSpace(value)
		case "phone":
			info.Phone = strings.TrimSpace(value)
		case "mailing_address":
			info.MailingAddress = strings.TrimSpace(value)
		}
	}
	return info, nil
}
