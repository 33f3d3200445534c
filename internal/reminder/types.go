package reminder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the delivery state of a Notification. The only transition is
// pending -> sent, taken when dispatch succeeds.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
)

// Event is a dated health occurrence owned by one member.
type Event struct {
	Title string `json:"title"`
	// Date is YYYY-MM-DD. With RRule set it is the first occurrence.
	Date  string `json:"date"`
	RRule string `json:"rrule,omitempty"`
}

// Member is a tracked family member.
type Member struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Relation       string  `json:"relation,omitempty"`
	DOB            string  `json:"dob,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	BloodGroup     string  `json:"bloodGroup,omitempty"`
	Allergies      List    `json:"allergies,omitempty"`
	Conditions     List    `json:"conditions,omitempty"`
	UpcomingEvents []Event `json:"upcomingEvents,omitempty"`

	// Extra holds fields this service does not interpret (phone,
	// medications, ...). They are written back unchanged.
	Extra map[string]json.RawMessage `json:"-"`

	// textLists marks list fields that arrived as comma separated strings;
	// they are written back in the same shape.
	textLists listShape
}

type listShape uint8

const (
	allergiesAsText listShape = 1 << iota
	conditionsAsText
)

type memberFields Member

var memberKeys = map[string]struct{}{
	"id": {}, "name": {}, "relation": {}, "dob": {}, "gender": {},
	"bloodGroup": {}, "allergies": {}, "conditions": {}, "upcomingEvents": {},
}

func (m *Member) UnmarshalJSON(b []byte) error {
	var f memberFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Extra, f.textLists = nil, 0
	for k, v := range raw {
		if _, known := memberKeys[k]; !known {
			if f.Extra == nil {
				f.Extra = make(map[string]json.RawMessage)
			}
			f.Extra[k] = v
		}
	}
	if isJSONString(raw["allergies"]) {
		f.textLists |= allergiesAsText
	}
	if isJSONString(raw["conditions"]) {
		f.textLists |= conditionsAsText
	}
	*m = Member(f)
	return nil
}

func (m Member) MarshalJSON() ([]byte, error) {
	if len(m.Extra) == 0 && m.textLists == 0 {
		return json.Marshal(memberFields(m))
	}
	b, err := json.Marshal(memberFields(m))
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(m.Extra)+len(memberKeys))
	for k, v := range m.Extra {
		if _, known := memberKeys[k]; !known {
			out[k] = v
		}
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if m.textLists&allergiesAsText != 0 {
		out["allergies"], _ = json.Marshal(strings.Join(m.Allergies, ", "))
	}
	if m.textLists&conditionsAsText != 0 {
		out["conditions"], _ = json.Marshal(strings.Join(m.Conditions, ", "))
	}
	return json.Marshal(out)
}

func isJSONString(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '"'
}

// Notification records that a member's event entered the notice window.
type Notification struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"memberId"`
	MemberName string    `json:"memberName"`
	EventTitle string    `json:"eventTitle"`
	EventDate  string    `json:"eventDate"`
	DaysUntil  int       `json:"daysUntil"`
	NotifiedAt time.Time `json:"notifiedAt"`
	Status     Status    `json:"status"`
}

// Key builds the composite identity of a (member, event title, event date)
// triple. Parts are joined with "_"; a backslash or "_" inside a part is
// escaped with a backslash, so distinct triples never share a key. Parts
// without either character come out verbatim ("1_Checkup_2024-06-10").
func Key(memberID, title, date string) string {
	return keyEscaper.Replace(memberID) + "_" + keyEscaper.Replace(title) + "_" + keyEscaper.Replace(date)
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, "_", `\_`)

// List is a string list that also accepts a comma separated string on input,
// since web clients send allergies/conditions either way.
type List []string

func (l *List) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = SplitList(s)
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("list: want string or array of strings: %w", err)
	}
	*l = cleanList(out)
	return nil
}

// SplitList splits a comma separated value, dropping empty items.
func SplitList(s string) List {
	return cleanList(strings.Split(s, ","))
}

func cleanList(in []string) List {
	out := make(List, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// naiveLayout reads timestamps written without a zone offset; they are taken as UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

func (n *Notification) UnmarshalJSON(b []byte) error {
	type plain Notification
	var raw struct {
		plain
		NotifiedAt string `json:"notifiedAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*n = Notification(raw.plain)
	if raw.NotifiedAt == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.NotifiedAt)
	if err != nil {
		if t, err = time.Parse(naiveLayout, raw.NotifiedAt); err != nil {
			return fmt.Errorf("notifiedAt: %w", err)
		}
	}
	n.NotifiedAt = t
	return nil
}
