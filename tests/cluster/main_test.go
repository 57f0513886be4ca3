//go:build integration

package cacheserver_cluster_test

import (
	"testing"

	"github.com/giantswarm/cacheserver/tests/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.RunTestMain(m)
}
