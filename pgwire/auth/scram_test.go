package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// These expected values were computed independently (Python hashlib/hmac,
// not this package) for password "pencil", client nonce
// "fyko+d2lbbFgONRv9qkxdawL", and server nonce extension
// "3rfcNHYJY1ZVvWVs7j" — the same worked example RFC 5802 §5 uses for
// SCRAM-SHA-1, adapted here to SCRAM-SHA-256 since the nonce/salt values
// themselves are arbitrary and carry no algorithm dependence.
const (
	scramTestPassword    = "pencil"
	scramTestClientNonce = "fyko+d2lbbFgONRv9qkxdawL"
	scramTestServerFirst = "r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096"
	scramTestClientFinal = "c=biws,r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,p=9hgDaaRNgghHML8AKTfqgIFwz2JgZ8l17PWfMFKKrpA="
	scramTestServerFinal = "v=RtPBsgQaXSAXXNUyPB2iIsLgh9hdNjdnRei/FBZtl0M="
)

func newTestScramClient() *ScramClient {
	return &ScramClient{password: scramTestPassword, nonce: scramTestClientNonce}
}

func TestScramInitialResponse(t *testing.T) {
	c := newTestScramClient()
	require.Equal(t, "n,,n=,r="+scramTestClientNonce, string(c.InitialResponse()))
}

func TestScramContinueResponseMatchesKnownVector(t *testing.T) {
	c := newTestScramClient()
	c.InitialResponse()

	final, err := c.ContinueResponse([]byte(scramTestServerFirst))
	require.NoError(t, err)
	require.Equal(t, scramTestClientFinal, string(final))
}

func TestScramFinishVerifiesServerSignature(t *testing.T) {
	c := newTestScramClient()
	c.InitialResponse()
	_, err := c.ContinueResponse([]byte(scramTestServerFirst))
	require.NoError(t, err)

	require.NoError(t, c.Finish([]byte(scramTestServerFinal)))
}

func TestScramFinishRejectsWrongSignature(t *testing.T) {
	c := newTestScramClient()
	c.InitialResponse()
	_, err := c.ContinueResponse([]byte(scramTestServerFirst))
	require.NoError(t, err)

	err = c.Finish([]byte("v=AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="))
	require.Error(t, err)
}

func TestScramFinishSurfacesServerError(t *testing.T) {
	c := newTestScramClient()
	c.InitialResponse()
	_, err := c.ContinueResponse([]byte(scramTestServerFirst))
	require.NoError(t, err)

	err = c.Finish([]byte("e=invalid-proof"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid-proof")
}

func TestScramContinueResponseRejectsNonExtendingServerNonce(t *testing.T) {
	c := newTestScramClient()
	c.InitialResponse()

	_, err := c.ContinueResponse([]byte("r=totally-different-nonce,s=QSXCR+Q6sek8bf92,i=4096"))
	require.Error(t, err)
}

func TestScramContinueResponseRejectsMalformedServerFirst(t *testing.T) {
	c := newTestScramClient()
	c.InitialResponse()

	_, err := c.ContinueResponse([]byte("garbage"))
	require.Error(t, err)
}

func TestNewScramClientNormalizesPasswordAndRandomizesNonce(t *testing.T) {
	a, err := NewScramClient("pencil")
	require.NoError(t, err)
	b, err := NewScramClient("pencil")
	require.NoError(t, err)

	require.Equal(t, "pencil", a.password)
	require.NotEmpty(t, a.nonce)
	require.NotEqual(t, a.nonce, b.nonce)
}
