package reconcile

import (
	"testing"
	"time"

	"internflow-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func TestMatch_PicksMostRecentlySent(t *testing.T) {
	t1, t2 := t0, t0.Add(72*time.Hour)
	outstanding := []domain.OutstandingApplication{
		{ApplicationID: 2, CompanyEmail: "hr@acme.com", SentAt: t2},
		{ApplicationID: 1, CompanyEmail: "hr@acme.com", SentAt: t1},
		{ApplicationID: 3, CompanyEmail: "jobs@globex.com", SentAt: t2},
	}

	id, ok := Match(domain.InboundMessage{From: "hr@acme.com", Subject: "Re: application"}, outstanding)
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
}

func TestMatch_OrderOfSnapshotDoesNotMatter(t *testing.T) {
	t1, t2 := t0, t0.Add(time.Hour)
	a := []domain.OutstandingApplication{
		{ApplicationID: 10, CompanyEmail: "hr@acme.com", SentAt: t1},
		{ApplicationID: 11, CompanyEmail: "hr@acme.com", SentAt: t2},
	}
	b := []domain.OutstandingApplication{a[1], a[0]}

	idA, _ := Match(domain.InboundMessage{From: "hr@acme.com"}, a)
	idB, _ := Match(domain.InboundMessage{From: "hr@acme.com"}, b)
	assert.Equal(t, int64(11), idA)
	assert.Equal(t, idA, idB)
}

func TestMatch_TieOnSentAtGoesToHigherID(t *testing.T) {
	outstanding := []domain.OutstandingApplication{
		{ApplicationID: 7, CompanyEmail: "hr@acme.com", SentAt: t0},
		{ApplicationID: 4, CompanyEmail: "hr@acme.com", SentAt: t0},
	}
	id, ok := Match(domain.InboundMessage{From: "hr@acme.com"}, outstanding)
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestMatch_NormalizesSender(t *testing.T) {
	outstanding := []domain.OutstandingApplication{
		{ApplicationID: 1, CompanyEmail: "HR@Acme.com", SentAt: t0},
	}
	id, ok := Match(domain.InboundMessage{From: "Sarah Johnson <hr@ACME.com>"}, outstanding)
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
}

func TestMatch_UnknownSender(t *testing.T) {
	outstanding := []domain.OutstandingApplication{
		{ApplicationID: 1, CompanyEmail: "hr@acme.com", SentAt: t0},
	}
	_, ok := Match(domain.InboundMessage{From: "newsletter@acme.com"}, outstanding)
	assert.False(t, ok)

	_, ok = Match(domain.InboundMessage{From: ""}, outstanding)
	assert.False(t, ok)
}

func TestMatch_IgnoresContent(t *testing.T) {
	outstanding := []domain.OutstandingApplication{
		{ApplicationID: 1, CompanyEmail: "hr@acme.com", SentAt: t0},
	}
	_, ok := Match(domain.InboundMessage{
		From:    "someone@else.com",
		Subject: "Re: PFE Internship Application - hr@acme.com",
		Body:    "forwarding from hr@acme.com",
	}, outstanding)
	assert.False(t, ok)
}

func TestIndex_Len(t *testing.T) {
	idx := NewIndex([]domain.OutstandingApplication{
		{ApplicationID: 1, CompanyEmail: "hr@acme.com", SentAt: t0},
		{ApplicationID: 2, CompanyEmail: "hr@acme.com", SentAt: t0.Add(time.Minute)},
		{ApplicationID: 3, CompanyEmail: "", SentAt: t0},
	})
	assert.Equal(t, 1, idx.Len())
}
