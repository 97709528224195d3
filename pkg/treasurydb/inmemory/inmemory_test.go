//go:build unit || !integration

package inmemory_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tesoro-project/tesoro/pkg/treasurydb"
	"github.com/tesoro-project/tesoro/pkg/treasurydb/inmemory"
	"github.com/tesoro-project/tesoro/pkg/treasurydb/storetest"
)

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storetest.StoreSuite{
		SetupHandler: func() treasurydb.Store {
			store, err := inmemory.NewInMemoryStore()
			if err != nil {
				t.Fatal(err)
			}
			return store
		},
	})
}
