package report

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/user"
	"regexp"
	"strconv"
	"time"
)

// Prefix starts every run id.
const Prefix = "BogFlow"

const uidTimeLayout = "060102-150405"

var uidPattern = regexp.MustCompile(`^` + Prefix + `-(?P<user>.*?)-(?P<ts>\d{6}-\d{6})-(?P<n>\d+)$`)

// UID identifies a run.
type UID struct {
	User      string
	Timestamp time.Time
	Random    int
}

// NewUID creates an id for a run starting now, owned by the current user.
func NewUID() UID {
	return UID{User: currentUser(), Timestamp: time.Now().UTC(), Random: rand.IntN(65536) + 1}
}

func (u UID) String() string {
	return fmt.Sprintf("%s-%s-%s-%d", Prefix, u.User, u.Timestamp.UTC().Format(uidTimeLayout), u.Random)
}

// ParseUID splits a run id into its parts. The timestamp must be a real
// date and time.
func ParseUID(s string) (UID, error) {
	m := uidPattern.FindStringSubmatch(s)
	if m == nil {
		return UID{}, fmt.Errorf("'%s' is not a run id", s)
	}
	ts, err := time.ParseInLocation(uidTimeLayout, m[uidPattern.SubexpIndex("ts")], time.UTC)
	if err != nil {
		return UID{}, fmt.Errorf("'%s' is not a run id: %w", s, err)
	}
	n, err := strconv.Atoi(m[uidPattern.SubexpIndex("n")])
	if err != nil {
		return UID{}, fmt.Errorf("'%s' is not a run id: %w", s, err)
	}
	return UID{User: m[uidPattern.SubexpIndex("user")], Timestamp: ts, Random: n}, nil
}

// IsUID reports whether s is a well-formed run id.
func IsUID(s string) bool {
	_, err := ParseUID(s)
	return err == nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
