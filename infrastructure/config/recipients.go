package config

import (
	"fmt"
	"sort"
	"strings"

	"audioprep/domain/notification"
)

// RecipientLookup resolves command-line names against the email address books
type RecipientLookup struct {
	config *Config
}

func NewRecipientLookup(cfg *Config) *RecipientLookup {
	return &RecipientLookup{config: cfg}
}

type directoryEntry struct {
	key string
	notification.Recipient
}

// matches reports whether q names the entry by key, full name, first name or last name
func (e directoryEntry) matches(q string) bool {
	if q == "" {
		return false
	}
	if strings.ToLower(e.key) == q {
		return true
	}
	name := strings.ToLower(e.Name)
	if name == q {
		return true
	}
	fields := strings.Fields(name)
	return len(fields) > 0 && (fields[0] == q || fields[len(fields)-1] == q)
}

func (r *RecipientLookup) recipientEntries() []directoryEntry {
	entries := make([]directoryEntry, 0, len(r.config.Email.Recipients))
	for key, rc := range r.config.Email.Recipients {
		entries = append(entries, directoryEntry{key: key, Recipient: notification.Recipient{Name: rc.Name, Address: rc.Address}})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries
}

func (r *RecipientLookup) ccEntries() []directoryEntry {
	entries := make([]directoryEntry, 0, len(r.config.Email.DefaultCC))
	for _, rc := range r.config.Email.DefaultCC {
		entries = append(entries, directoryEntry{key: ccKey(rc), Recipient: notification.Recipient{Name: rc.Name, Address: rc.Address}})
	}
	return entries
}

func matchAll(entries []directoryEntry, query string) []notification.Recipient {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []notification.Recipient
	seen := map[string]bool{}
	for _, e := range entries {
		addr := strings.ToLower(e.Address)
		if e.matches(query) && !seen[addr] {
			seen[addr] = true
			out = append(out, e.Recipient)
		}
	}
	return out
}

// resolve turns each query (comma-separated lists allowed) into exactly one recipient
func resolve(entries []directoryEntry, queries []string) ([]notification.Recipient, error) {
	var out []notification.Recipient
	seen := map[string]bool{}

	for _, q := range queries {
		for _, query := range strings.Split(q, ",") {
			query = strings.TrimSpace(query)
			if query == "" {
				continue
			}

			matches := matchAll(entries, query)
			switch len(matches) {
			case 0:
				return nil, fmt.Errorf("recipient %q: %w", query, notification.ErrRecipientNotFound)
			case 1:
			default:
				names := make([]string, len(matches))
				for i, m := range matches {
					names[i] = m.Name
				}
				return nil, fmt.Errorf("%w: %q matches %s - use last name to disambiguate",
					notification.ErrAmbiguousRecipient, query, strings.Join(names, ", "))
			}

			addr := strings.ToLower(matches[0].Address)
			if !seen[addr] {
				seen[addr] = true
				out = append(out, matches[0])
			}
		}
	}

	if len(out) == 0 {
		return nil, notification.ErrRecipientNotFound
	}
	return out, nil
}

// LookupRecipient returns every recipient the query could mean, ordered by key
func (r *RecipientLookup) LookupRecipient(query string) ([]notification.Recipient, error) {
	matches := matchAll(r.recipientEntries(), query)
	if len(matches) == 0 {
		return nil, notification.ErrRecipientNotFound
	}
	return matches, nil
}

// LookupRecipients resolves each query to one recipient, deduplicated by address
func (r *RecipientLookup) LookupRecipients(queries []string) ([]notification.Recipient, error) {
	return resolve(r.recipientEntries(), queries)
}

// GetDefaultCC returns the configured default CC recipients
func (r *RecipientLookup) GetDefaultCC() []notification.Recipient {
	entries := r.ccEntries()
	cc := make([]notification.Recipient, len(entries))
	for i, e := range entries {
		cc[i] = e.Recipient
	}
	return cc
}

// ResolveCC combines the default CC list with extra queries, dropping
// duplicates and anyone already in to. Extra queries may name either
// a recipient or a default CC key.
func (r *RecipientLookup) ResolveCC(to []notification.Recipient, queries []string) ([]notification.Recipient, error) {
	candidates := r.GetDefaultCC()
	if len(queries) > 0 {
		extra, err := resolve(append(r.recipientEntries(), r.ccEntries()...), queries)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, extra...)
	}

	seen := make(map[string]bool, len(to)+len(candidates))
	for _, t := range to {
		seen[strings.ToLower(t.Address)] = true
	}

	var cc []notification.Recipient
	for _, c := range candidates {
		addr := strings.ToLower(c.Address)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		cc = append(cc, c)
	}
	return cc, nil
}
