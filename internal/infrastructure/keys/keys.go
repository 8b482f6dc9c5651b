package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Material is the process-wide RSA signing/verification key pair. Loaded once
// at startup, immutable afterwards, and passed by injection so tests can use
// throwaway pairs.
type Material struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Load reads the key pair from PEM files.
func Load(privatePath, publicPath string) (*Material, error) {
	privBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Material{Private: privKey, Public: pubKey}, nil
}

// PublicPEM re-encodes the public key as PKIX PEM for the export endpoint,
// so other services can verify access tokens offline.
func (m *Material) PublicPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(m.Public)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
