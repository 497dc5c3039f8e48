// internal/service/importer.go
package service

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
)

var phoneRE = regexp.MustCompile(`^\+?[1-9]\d{7,15}$`)

// ValidPhone reports whether the value is E.164-shaped.
func ValidPhone(phone string) bool {
	return phoneRE.MatchString(strings.TrimSpace(phone))
}

// Importer bulk-loads recipients from CSV. Headers are flexible
// (phone_number/phone/msisdn, full_name/name), bad rows are skipped and
// counted rather than failing the import.
type Importer struct {
	Recipients repository.RecipientRepositoryInterface
	Log        zerolog.Logger
}

type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

func (im *Importer) Import(r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("csv has no header row")
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A ragged row should not abort the rest of the file.
			result.Total++
			result.Skipped++
			continue
		}
		result.Total++

		phone := field(row, "phone_number", "phone", "msisdn")
		if !ValidPhone(phone) {
			result.Skipped++
			continue
		}

		existing, err := im.Recipients.GetByPhone(phone)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		recipient := &model.Recipient{
			Phone:    phone,
			FullName: field(row, "full_name", "name"),
			Email:    field(row, "email"),
			Status:   field(row, "status"),
			City:     field(row, "city"),
			Plan:     field(row, "plan"),
			OptedIn:  parseOptedIn(field(row, "is_opted_in", "opted_in")),
		}
		if expiry := field(row, "expiry_date", "expiry"); expiry != "" {
			recipient.ExpiryDate = parseDate(expiry)
		}

		if err := im.Recipients.Create(recipient); err != nil {
			im.Log.Warn().Err(err).Str("phone", phone).Msg("failed to import recipient")
			result.Skipped++
			continue
		}
		result.Created++
	}

	im.Log.Info().Int("created", result.Created).Int("skipped", result.Skipped).
		Int("total", result.Total).Msg("recipient import finished")
	return result, nil
}

func parseOptedIn(raw string) bool {
	if raw == "" {
		return true
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func parseDate(value string) *time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
