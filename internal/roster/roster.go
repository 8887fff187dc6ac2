package roster

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cublic-github/team-summary-bot/internal/models"
)

// Roster maps Discord user IDs to the member names the team uses in the
// digest. It is read-only after construction.
type Roster struct {
	members  []models.Member
	byID     map[string]string
	resolves bool
}

// New builds a roster from the given members. Entries without a member name
// or ID do not participate in resolution.
func New(members []models.Member, resolve bool) *Roster {
	byID := make(map[string]string, len(members))
	for _, m := range members {
		if m.ID != "" && m.MemberName != "" {
			byID[m.ID] = m.MemberName
		}
	}
	return &Roster{members: members, byID: byID, resolves: resolve}
}

// Load builds a roster from inline JSON or, failing that, a JSON file.
// Both empty yields an empty roster: resolution then falls back to the
// platform-visible fields.
func Load(inlineJSON, filePath string, resolve bool) (*Roster, error) {
	raw := []byte(inlineJSON)
	if len(raw) == 0 && filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read roster file %s: %w", filePath, err)
		}
		raw = data
	}

	if len(raw) == 0 {
		return New(nil, resolve), nil
	}

	var members []models.Member
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("failed to parse member roster: %w", err)
	}

	return New(members, resolve), nil
}

// Size returns the number of roster entries.
func (r *Roster) Size() int {
	return len(r.members)
}

// Resolve returns the display name for an author. Roster hits win; otherwise
// the platform global name, then username, then a placeholder embedding the
// id. Never returns an empty string.
func (r *Roster) Resolve(author models.Author) string {
	if r.resolves && author.ID != "" {
		if name, ok := r.byID[author.ID]; ok {
			return name
		}
	}
	if author.GlobalName != "" {
		return author.GlobalName
	}
	if author.Username != "" {
		return author.Username
	}
	if author.ID != "" {
		return fmt.Sprintf("user:%s", author.ID)
	}
	return "unknown"
}
