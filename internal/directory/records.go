package directory

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// userRecord is a user as returned by the registry API.
type userRecord struct {
	ID           string            `mapstructure:"_id"`
	Name         string            `mapstructure:"name"`
	Email        string            `mapstructure:"email"`
	Phone        string            `mapstructure:"phone"`
	Tel          string            `mapstructure:"tel"`
	Status       string            `mapstructure:"status"`
	Experience   string            `mapstructure:"experience"`
	Talents      string            `mapstructure:"talents"`
	Languaje     string            `mapstructure:"languaje"`
	Country      string            `mapstructure:"country"`
	Availability string            `mapstructure:"availability"`
	Salary       string            `mapstructure:"salary"`
	References   []referenceRecord `mapstructure:"references"`
}

type referenceRecord struct {
	Name         string `mapstructure:"name"`
	Position     string `mapstructure:"position"`
	Company      string `mapstructure:"company"`
	Phone        string `mapstructure:"phone"`
	Email        string `mapstructure:"email"`
	Relationship string `mapstructure:"relationship"`
}

type offerRecord struct {
	ID          string       `mapstructure:"_id"`
	Title       string       `mapstructure:"title"`
	Description string       `mapstructure:"description"`
	Area        string       `mapstructure:"area"`
	Experience  string       `mapstructure:"experience"`
	Languajes   string       `mapstructure:"languajes"`
	Users       []userRecord `mapstructure:"user"`
}

type resultUser struct {
	ID string `mapstructure:"_id"`
}

type resultRecord struct {
	UserID    string     `mapstructure:"userId"`
	User      resultUser `mapstructure:"user"`
	TestType  string     `mapstructure:"testType"`
	Score     string     `mapstructure:"score"`
	Date      string     `mapstructure:"date"`
	CreatedAt string     `mapstructure:"createdAt"`
	Status    string     `mapstructure:"status"`
}

func (r resultRecord) candidateID() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.User.ID
}

// decodeRecords converts loosely typed upstream items into typed records. Numbers are accepted
// where strings are expected.
func decodeRecords(items []map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(items); err != nil {
		return fmt.Errorf("decode upstream records: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
