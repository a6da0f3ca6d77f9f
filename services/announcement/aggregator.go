package main

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

const (
	// announcementFetchLimit caps how many delivery rows one feed
	// request reads from the database.
	announcementFetchLimit = 200
	// announcementHistoryLimit bounds the grouped feed shown to HR.
	announcementHistoryLimit = 40
)

// AnnouncementSender identifies who sent a broadcast. All fields are
// nil for rows whose sender account was deleted.
type AnnouncementSender struct {
	ID    *uuid.UUID `json:"id"`
	Name  *string    `json:"name"`
	Email *string    `json:"email"`
}

// AnnouncementRecipient is one targeted teammate on a SPECIFIC-scope
// announcement.
type AnnouncementRecipient struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Designation *string   `json:"designation"`
	AvatarURL   *string   `json:"avatar_url"`
}

// RecipientSummary describes the audience of one announcement. The
// people list is populated only for SPECIFIC scope so broad
// broadcasts never leak per-user data.
type RecipientSummary struct {
	Scope  models.AnnouncementScope `json:"scope"`
	Label  string                   `json:"label"`
	Count  *int                     `json:"count,omitempty"`
	People []AnnouncementRecipient  `json:"people"`
}

// AnnouncementSummary is one logical announcement derived from its
// constituent delivery rows. It exists only as a query-result shape.
type AnnouncementSummary struct {
	ID          uuid.UUID                   `json:"id"`
	Title       string                      `json:"title"`
	Body        string                      `json:"body"`
	Audience    models.NotificationAudience `json:"audience"`
	Status      models.NotificationStatus   `json:"status"`
	CreatedAt   time.Time                   `json:"created_at"`
	DeliveredAt time.Time                   `json:"delivered_at"`
	Sender      AnnouncementSender          `json:"sender"`
	Recipients  RecipientSummary            `json:"recipients"`
}

// announcementGroup accumulates the rows of one batch while folding.
type announcementGroup struct {
	id          uuid.UUID
	title       string
	body        string
	audience    models.NotificationAudience
	status      models.NotificationStatus
	createdAt   time.Time
	deliveredAt time.Time
	scope       models.AnnouncementScope
	sender      AnnouncementSender
	people      []AnnouncementRecipient
	seen        map[uuid.UUID]struct{}
	count       int
}

func buildSender(record *models.Notification) AnnouncementSender {
	if record.Sender == nil {
		return AnnouncementSender{}
	}
	name := record.Sender.DisplayName()
	email := record.Sender.Email
	id := record.Sender.ID
	return AnnouncementSender{ID: &id, Name: &name, Email: &email}
}

func toRecipient(record *models.Notification) (AnnouncementRecipient, bool) {
	if record.TargetUser == nil {
		return AnnouncementRecipient{}, false
	}
	return AnnouncementRecipient{
		ID:          record.TargetUser.ID,
		Name:        record.TargetUser.DisplayName(),
		Email:       record.TargetUser.Email,
		Designation: record.TargetUser.Designation,
		AvatarURL:   record.TargetUser.AvatarURL,
	}, true
}

// recipientLabel maps a scope and member count to the human-facing
// audience label. The count is surfaced only for SPECIFIC scope.
func recipientLabel(scope models.AnnouncementScope, count int) (string, bool) {
	switch scope {
	case models.ScopeOrganization:
		return "Entire organization", false
	case models.ScopeRole:
		return "Targeted roles", false
	}
	if count == 1 {
		return "Selected teammate", true
	}
	return "Selected teammates", true
}

func newAnnouncementGroup(record *models.Notification, scope models.AnnouncementScope, deliveredAt time.Time) *announcementGroup {
	return &announcementGroup{
		id:          record.GroupKey(),
		title:       record.Title,
		body:        record.Body,
		audience:    record.Audience,
		status:      record.Status,
		createdAt:   record.CreatedAt,
		deliveredAt: deliveredAt,
		scope:       scope,
		sender:      buildSender(record),
		seen:        make(map[uuid.UUID]struct{}),
	}
}

func (g *announcementGroup) summary() AnnouncementSummary {
	label, showCount := recipientLabel(g.scope, g.count)
	recipients := RecipientSummary{
		Scope:  g.scope,
		Label:  label,
		People: []AnnouncementRecipient{},
	}
	if showCount {
		count := g.count
		recipients.Count = &count
	}
	if g.scope == models.ScopeSpecific {
		recipients.People = g.people
	}
	return AnnouncementSummary{
		ID:          g.id,
		Title:       g.title,
		Body:        g.body,
		Audience:    g.audience,
		Status:      g.status,
		CreatedAt:   g.createdAt,
		DeliveredAt: g.deliveredAt,
		Sender:      g.sender,
		Recipients:  recipients,
	}
}

// BuildAnnouncementFeed collapses per-recipient delivery rows into
// logical announcements. Rows sharing a batch id merge into one
// group; rows without one stay singletons keyed by their own id.
// Pure fold: no mutation of the input, deterministic for a given
// record set.
func BuildAnnouncementFeed(records []models.Notification) []AnnouncementSummary {
	groups := make(map[uuid.UUID]*announcementGroup)
	order := make([]uuid.UUID, 0, len(records))

	for i := range records {
		record := &records[i]
		key := record.GroupKey()
		deliveredAt := record.DeliveredAt()
		scope := record.ResolvedScope()

		group, exists := groups[key]
		if !exists {
			group = newAnnouncementGroup(record, scope, deliveredAt)
			groups[key] = group
			order = append(order, key)
		} else if deliveredAt.After(group.deliveredAt) {
			group.deliveredAt = deliveredAt
		}

		group.count++
		if scope == models.ScopeSpecific {
			if recipient, ok := toRecipient(record); ok {
				if _, dup := group.seen[recipient.ID]; !dup {
					group.seen[recipient.ID] = struct{}{}
					group.people = append(group.people, recipient)
				}
			}
		}
	}

	sorted := make([]*announcementGroup, 0, len(groups))
	for _, key := range order {
		sorted = append(sorted, groups[key])
	}
	// Stable sort keeps first-seen (newest-first fetch) order for
	// groups delivered at the same instant.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].deliveredAt.After(sorted[j].deliveredAt)
	})

	if len(sorted) > announcementHistoryLimit {
		sorted = sorted[:announcementHistoryLimit]
	}

	summaries := make([]AnnouncementSummary, 0, len(sorted))
	for _, group := range sorted {
		summaries = append(summaries, group.summary())
	}
	return summaries
}
