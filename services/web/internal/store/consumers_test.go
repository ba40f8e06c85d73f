package store_test

import (
	"testing"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/export"
	"volunteerverse/services/web/internal/handlers"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/store"
)

func TestStoreServesEveryConsumer(t *testing.T) {
	var st *store.Store

	var _ auth.Store = st
	var _ profile.Source = st
	var _ handlers.Repository = st
	var _ activity.AuditWriter = st
	var _ export.Source = st
}
