package idbutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringo380/idb-utils-sub001/classify"
	"github.com/ringo380/idb-utils-sub001/internal/testutil"
	"github.com/ringo380/idb-utils-sub001/page"
)

func TestDiagnose(t *testing.T) {
	p := testutil.IndexPage(DefaultPageSize, 3, 1, 10, 0, 500)

	r, pat, err := Diagnose(p, DefaultPageSize, nil)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, AlgorithmCRC32C, r.Algorithm)
	assert.Equal(t, classify.Unknown, pat)

	require.NoError(t, page.SetChecksum(p, r.Stored^0x3))
	r, pat, err = Diagnose(p, DefaultPageSize, nil)
	require.NoError(t, err)
	assert.False(t, r.Valid)
	assert.Equal(t, classify.ZeroFill, pat)

	_, _, err = Diagnose(p[:100], DefaultPageSize, nil)
	assert.Error(t, err)
}
