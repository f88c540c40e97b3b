package vault

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)

	assert.Equal(t, "provenix-store", leaf.Subject.CommonName)
	assert.Contains(t, leaf.DNSNames, "localhost")
	assert.True(t, leaf.NotBefore.Before(time.Now()))
	assert.True(t, leaf.NotAfter.After(time.Now()))
	require.NoError(t, leaf.VerifyHostname("127.0.0.1"))
}

func TestGeneratedCertsAreUnique(t *testing.T) {
	a, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	b, err := GenerateSelfSignedCert()
	require.NoError(t, err)

	assert.NotEqual(t, a.Certificate[0], b.Certificate[0])
}
