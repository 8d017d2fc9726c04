// Package auth finds the client certificate and exchanges it for a secret vault token.
package auth

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"

	"github.com/mikeblum/graph-bulk-import/conf"
)

var ErrAuthentication = errors.New("authentication failed")

// Certificate is a leaf certificate, its chain and its private key.
type Certificate struct {
	Path       string
	Thumbprint string
	Chain      []*x509.Certificate
	Key        crypto.PrivateKey
}

func (c *Certificate) Leaf() *x509.Certificate {
	return c.Chain[0]
}

// CertificateStore is a directory of PEM files, each holding a certificate chain and its key.
type CertificateStore struct {
	dir string
	log *conf.Log
	now func() time.Time
}

func NewCertificateStore(dir string) *CertificateStore {
	return &CertificateStore{
		dir: dir,
		log: conf.NewLog().With("certificate-dir", dir),
		now: time.Now,
	}
}

// Thumbprint is the upper case hex SHA-1 of the DER certificate.
func Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// normalizeThumbprint drops separators and the marks left by copying from certificate viewers.
func normalizeThumbprint(thumbprint string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", ":", "", "\u200e", "").Replace(strings.TrimSpace(thumbprint)))
}

// Find returns the currently valid certificate matching thumbprint. When several match, the one
// issued most recently wins.
func (s *CertificateStore) Find(thumbprint string) (*Certificate, error) {
	want := normalizeThumbprint(thumbprint)
	if want == "" {
		return nil, fmt.Errorf("%w: thumbprint should not be empty, set %s", ErrAuthentication, ENV_THUMBPRINT_CERTIFICATE)
	}
	var paths []string
	var err error
	if paths, err = filepath.Glob(filepath.Join(s.dir, "*.pem")); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	now := s.now()
	var found *Certificate
	for _, path := range paths {
		cert, err := readCertificate(path)
		if err != nil {
			s.log.Debug("Skipping certificate", "path", path, "error", err)
			continue
		}
		leaf := cert.Leaf()
		if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
			continue
		}
		if cert.Thumbprint != want {
			continue
		}
		if found == nil || leaf.NotBefore.After(found.Leaf().NotBefore) {
			found = cert
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no valid certificate with thumbprint %s in %s", ErrAuthentication, want, s.dir)
	}
	s.log.Info("Found certificate", "action", "auth", "thumbprint", found.Thumbprint, "subject", found.Leaf().Subject.String(), "not-after", found.Leaf().NotAfter)
	return found, nil
}

func readCertificate(path string) (*Certificate, error) {
	var raw []byte
	var err error
	if raw, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	chain, key, err := confidential.CertFromPEM(raw, "")
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, errors.New("no certificate in file")
	}
	return &Certificate{
		Path:       path,
		Thumbprint: Thumbprint(chain[0]),
		Chain:      chain,
		Key:        key,
	}, nil
}
