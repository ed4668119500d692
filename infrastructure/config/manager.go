package config

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrCCNotFound        = errors.New("cc not found")
	ErrDuplicateKey      = errors.New("key already exists")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrUnknownKind       = errors.New("unknown entity type")
)

// Kind selects which address book a ConfigManager call edits
type Kind string

const (
	KindRecipient Kind = "recipient"
	KindCC        Kind = "cc"
)

// ParseKind accepts the singular or plural CLI spelling
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recipient", "recipients":
		return KindRecipient, nil
	case "cc", "ccs":
		return KindCC, nil
	}
	return "", fmt.Errorf("%w %q. Use recipient or cc", ErrUnknownKind, s)
}

// Recipient is one address book entry as shown to the user
type Recipient struct {
	Key     string
	Name    string
	Address string
}

// addressBook hides whether entries live in a map (recipients) or a list (default_cc)
type addressBook interface {
	find(key string) (int, RecipientConfig, bool)
	put(idx int, key string, rc RecipientConfig)
	remove(idx int, key string)
	entries() []Recipient
	notFound() error
}

type recipientBook struct{ m map[string]RecipientConfig }

func (b recipientBook) find(key string) (int, RecipientConfig, bool) {
	rc, ok := b.m[key]
	return 0, rc, ok
}

func (b recipientBook) put(_ int, key string, rc RecipientConfig) {
	rc.Key = ""
	b.m[key] = rc
}

func (b recipientBook) remove(_ int, key string) { delete(b.m, key) }

func (b recipientBook) entries() []Recipient {
	out := make([]Recipient, 0, len(b.m))
	for k, rc := range b.m {
		out = append(out, Recipient{Key: k, Name: rc.Name, Address: rc.Address})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (recipientBook) notFound() error { return ErrRecipientNotFound }

type ccBook struct{ list *[]RecipientConfig }

// ccKey is the stored key, falling back to the lowercased first name
func ccKey(rc RecipientConfig) string {
	if rc.Key != "" {
		return rc.Key
	}
	if fields := strings.Fields(rc.Name); len(fields) > 0 {
		return strings.ToLower(fields[0])
	}
	return ""
}

func (b ccBook) find(key string) (int, RecipientConfig, bool) {
	for i, rc := range *b.list {
		if ccKey(rc) == key || strings.ToLower(rc.Name) == key {
			return i, rc, true
		}
	}
	return -1, RecipientConfig{}, false
}

func (b ccBook) put(idx int, key string, rc RecipientConfig) {
	rc.Key = key
	if idx < 0 {
		*b.list = append(*b.list, rc)
		return
	}
	(*b.list)[idx] = rc
}

func (b ccBook) remove(idx int, _ string) {
	*b.list = append((*b.list)[:idx], (*b.list)[idx+1:]...)
}

func (b ccBook) entries() []Recipient {
	out := make([]Recipient, 0, len(*b.list))
	for i, rc := range *b.list {
		key := ccKey(rc)
		if key == "" {
			key = fmt.Sprintf("cc%d", i)
		}
		out = append(out, Recipient{Key: key, Name: rc.Name, Address: rc.Address})
	}
	return out
}

func (ccBook) notFound() error { return ErrCCNotFound }

// ConfigManager edits the email address books and saves after every change
type ConfigManager struct {
	config     *Config
	configPath string
}

func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

func (m *ConfigManager) book(kind Kind) (addressBook, error) {
	switch kind {
	case KindRecipient:
		if m.config.Email.Recipients == nil {
			m.config.Email.Recipients = make(map[string]RecipientConfig)
		}
		return recipientBook{m: m.config.Email.Recipients}, nil
	case KindCC:
		return ccBook{list: &m.config.Email.DefaultCC}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Add creates a new entry; name and a valid email are required
func (m *ConfigManager) Add(kind Kind, key, name, email string) error {
	b, err := m.book(kind)
	if err != nil {
		return err
	}
	key = normalizeKey(key)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case key == "":
		return fmt.Errorf("%s key is required", kind)
	case name == "":
		return fmt.Errorf("%s name is required", kind)
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if _, _, exists := b.find(key); exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateKey, kind, key)
	}

	b.put(-1, key, RecipientConfig{Name: name, Address: email})
	return Save(m.config, m.configPath)
}

// Get finds an entry by key. CCs also match on full name.
func (m *ConfigManager) Get(kind Kind, key string) (Recipient, error) {
	b, err := m.book(kind)
	if err != nil {
		return Recipient{}, err
	}
	key = normalizeKey(key)
	_, rc, ok := b.find(key)
	if !ok {
		return Recipient{}, fmt.Errorf("%w: %q", b.notFound(), key)
	}
	if kind == KindCC {
		key = ccKey(rc)
	}
	return Recipient{Key: key, Name: rc.Name, Address: rc.Address}, nil
}

// List returns every entry; recipients sorted by key, CCs in file order
func (m *ConfigManager) List(kind Kind) ([]Recipient, error) {
	b, err := m.book(kind)
	if err != nil {
		return nil, err
	}
	return b.entries(), nil
}

// Update changes the non-empty fields of an existing entry
func (m *ConfigManager) Update(kind Kind, key, name, email string) error {
	b, err := m.book(kind)
	if err != nil {
		return err
	}
	key = normalizeKey(key)
	idx, rc, ok := b.find(key)
	if !ok {
		return fmt.Errorf("%w: %q", b.notFound(), key)
	}

	if name = strings.TrimSpace(name); name != "" {
		rc.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		if err := ValidateEmail(email); err != nil {
			return err
		}
		rc.Address = email
	}

	if kind == KindCC {
		key = ccKey(rc)
	}
	b.put(idx, key, rc)
	return Save(m.config, m.configPath)
}

// Remove deletes an entry
func (m *ConfigManager) Remove(kind Kind, key string) error {
	b, err := m.book(kind)
	if err != nil {
		return err
	}
	key = normalizeKey(key)
	idx, _, ok := b.find(key)
	if !ok {
		return fmt.Errorf("%w: %q", b.notFound(), key)
	}
	b.remove(idx, key)
	return Save(m.config, m.configPath)
}

// ValidateEmail wraps ErrInvalidEmail unless email is a bare address
func ValidateEmail(email string) error {
	if !isValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// isValidEmail accepts a bare address whose domain has an interior dot
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// SuggestAddRecipientCommand returns the command to add a missing recipient
func SuggestAddRecipientCommand(key string) string {
	return fmt.Sprintf(`audioprep config add recipient --key %s --name "Recipient Name" --email "email@example.com"`, key)
}

// SuggestAddCCCommand returns the command to add a missing default CC
func SuggestAddCCCommand(key string) string {
	return fmt.Sprintf(`audioprep config add cc --key %s --name "CC Name" --email "email@example.com"`, key)
}
