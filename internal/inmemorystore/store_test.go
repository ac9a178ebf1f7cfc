package inmemorystore

import (
	"testing"

	"github.com/specialistvlad/testgrid/internal/store"
	"github.com/specialistvlad/testgrid/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}
