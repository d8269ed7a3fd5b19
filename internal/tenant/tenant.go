// Package tenant defines the bot-instance identity threaded through every
// layer. A Tenant is immutable for the process lifetime; everything mutable
// about it lives in the config store under its ID.
package tenant

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Tenant is one independently configured bot instance.
type Tenant struct {
	ID          string
	Token       string
	DisplayName string
	// AdminID is the primary administrator; extra admins live in the
	// config store under KeyExtraAdmins.
	AdminID int64
}

// ConfigReader is the subset of the config store needed to resolve admins.
type ConfigReader interface {
	Get(ctx context.Context, tenant, key, def string) string
}

// AdminSet resolves the full set of user ids authorized to manage this
// tenant: the primary admin plus the stored extra-admin list.
func (t Tenant) AdminSet(ctx context.Context, cfg ConfigReader) []int64 {
	set := map[int64]struct{}{}
	if t.AdminID != 0 {
		set[t.AdminID] = struct{}{}
	}
	for _, id := range ParseAdminList(cfg.Get(ctx, t.ID, KeyExtraAdmins, "")) {
		set[id] = struct{}{}
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsAdmin reports whether userID belongs to the tenant's AdminSet.
func (t Tenant) IsAdmin(ctx context.Context, cfg ConfigReader, userID int64) bool {
	if userID == 0 {
		return false
	}
	if userID == t.AdminID {
		return true
	}
	for _, id := range ParseAdminList(cfg.Get(ctx, t.ID, KeyExtraAdmins, "")) {
		if id == userID {
			return true
		}
	}
	return false
}

// ExtraAdmins returns only the stored extra-admin ids, without the primary.
func (t Tenant) ExtraAdmins(ctx context.Context, cfg ConfigReader) []int64 {
	return ParseAdminList(cfg.Get(ctx, t.ID, KeyExtraAdmins, ""))
}

// ParseAdminList parses the comma-joined numeric admin list stored in config.
// Non-numeric entries are skipped.
func ParseAdminList(raw string) []int64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// JoinAdminList renders ids back into the stored comma-joined form.
func JoinAdminList(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
