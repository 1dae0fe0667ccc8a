package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Group separates planning capabilities from messaging capabilities. Each
// agent may only request capabilities from its own group.
type Group string

const (
	GroupPlanning  Group = "planning"
	GroupMessaging Group = "messaging"
)

// Capability names declared by the built-in toolkit.
const (
	Calendar    = "calendar"
	Finance     = "finance"
	Health      = "health"
	Weather     = "weather"
	Traffic     = "traffic"
	Invitation  = "invite_people"
	ChatMessage = "chat_message"
	EmailSend   = "email_message"
)

// Card represents registry metadata for a capability.
type Card struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Group       Group          `json:"group"`
	InputSchema map[string]any `json:"input_schema"`
	SideEffects []string       `json:"side_effects"`
	Checksum    string         `json:"checksum"`
	Signature   string         `json:"signature"`
}

func querySchema() map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Event details relevant to this capability"},
		},
		"required": []any{"query"},
	}
}

func messageSchema() map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"message":  map[string]any{"type": "string", "description": "Invitation or update text to deliver"},
			"contacts": map[string]any{"type": "string", "description": "Target contact group, or auto_detect"},
		},
		"required": []any{"message"},
	}
}

// DefaultCards returns the built-in capability declarations. Descriptions
// carry the selection guidance the decision maker is prompted with.
func DefaultCards() []Card {
	return []Card{
		{Name: Calendar, Version: "v1", Group: GroupPlanning, InputSchema: querySchema(),
			Description: "Check date availability and suggest time slots. Use for any event that needs scheduling."},
		{Name: Finance, Version: "v1", Group: GroupPlanning, InputSchema: querySchema(),
			Description: "Estimate costs and produce a budget breakdown. Use for events with meaningful expenses."},
		{Name: Health, Version: "v1", Group: GroupPlanning, InputSchema: querySchema(),
			Description: "Check safety, dietary and accessibility considerations. Use for food-related or large gatherings."},
		{Name: Weather, Version: "v1", Group: GroupPlanning, InputSchema: querySchema(),
			Description: "Fetch a forecast for the event window. Use for outdoor or weather-sensitive events only."},
		{Name: Traffic, Version: "v1", Group: GroupPlanning, InputSchema: querySchema(),
			Description: "Analyze transportation and parking for a venue. Use for venue-based events, skip for home events."},
		{Name: Invitation, Version: "v1", Group: GroupPlanning, InputSchema: querySchema(),
			Description: "Draft invitation content matching the event's formality. Use for any event with attendees."},
		{Name: ChatMessage, Version: "v1", Group: GroupMessaging, InputSchema: messageSchema(), SideEffects: []string{"send"},
			Description: "Send a casual chat invitation to personal contacts. Use for informal, family-type events."},
		{Name: EmailSend, Version: "v1", Group: GroupMessaging, InputSchema: messageSchema(), SideEffects: []string{"send"},
			Description: "Send a formal email invitation. Use for business or formal events; combine with chat for mixed events."},
	}
}

// SignedDefaults returns the default cards signed with the given secret.
// With an empty secret the cards are returned unsigned.
func SignedDefaults(secret string) ([]Card, error) {
	cards := DefaultCards()
	if secret == "" {
		return cards, nil
	}
	for i := range cards {
		checksum, err := ComputeChecksum(cards[i])
		if err != nil {
			return nil, err
		}
		sig, err := SignCard(cards[i], secret)
		if err != nil {
			return nil, err
		}
		cards[i].Checksum = checksum
		cards[i].Signature = sig
	}
	return cards, nil
}

// DefaultRequired lists the capabilities a registry must carry to serve a
// planning session.
func DefaultRequired() []string {
	return []string{Calendar, Finance, Health, Weather, Traffic, Invitation, ChatMessage, EmailSend}
}

// Registry holds validated capability cards keyed by name.
type Registry struct {
	cards map[string]Card
}

// ErrToolMissing indicates a required capability is not registered.
var ErrToolMissing = fmt.Errorf("required capability missing")

// NewRegistry validates cards and ensures the required capabilities exist.
// When multiple versions of a card are supplied the highest version wins.
func NewRegistry(cards []Card, signingSecret string, required []string) (*Registry, error) {
	reg := &Registry{cards: make(map[string]Card)}
	for _, c := range cards {
		if err := validateSignature(c, signingSecret); err != nil {
			return nil, fmt.Errorf("capability %s@%s signature invalid: %w", c.Name, c.Version, err)
		}
		existing, ok := reg.cards[c.Name]
		if !ok || versionGreater(c.Version, existing.Version) {
			reg.cards[c.Name] = c
		}
	}
	if len(required) == 0 {
		required = DefaultRequired()
	}
	for _, r := range required {
		if _, ok := reg.cards[r]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, r)
		}
	}
	return reg, nil
}

// Card returns the card for a capability name.
func (r *Registry) Card(name string) (Card, bool) {
	if r == nil {
		return Card{}, false
	}
	c, ok := r.cards[name]
	return c, ok
}

// Has reports whether the capability is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.Card(name)
	return ok
}

// Group returns the cards belonging to a group, sorted by name so prompts and
// selections stay deterministic.
func (r *Registry) Group(g Group) []Card {
	if r == nil {
		return nil
	}
	out := make([]Card, 0, len(r.cards))
	for _, c := range r.cards {
		if c.Group == g {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ComputeChecksum returns a deterministic hash of the card payload (excluding
// the signature field).
func ComputeChecksum(c Card) (string, error) {
	payload := map[string]any{
		"name":         c.Name,
		"version":      c.Version,
		"description":  c.Description,
		"group":        c.Group,
		"input_schema": c.InputSchema,
		"side_effects": c.SideEffects,
	}
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// SignCard computes an HMAC signature using the signing secret.
func SignCard(c Card, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	checksum, err := ComputeChecksum(c)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(checksum))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func validateSignature(c Card, secret string) error {
	if secret == "" {
		return nil
	}
	expected, err := SignCard(c, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func versionGreater(a, b string) bool {
	if a == b {
		return false
	}
	return compareParts(splitVersion(a), splitVersion(b)) > 0
}

func splitVersion(v string) []int {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		fmt.Sscanf(p, "%d", &out[i])
	}
	return out
}

func compareParts(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := 0, 0
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}
