// internal/wallet/wallet.go
package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/rs/zerolog/log"
)

// Identity describes the X.509 material of the server's audit identity.
type Identity struct {
	Label    string
	MSPID    string
	CertPath string
	KeyDir   string
}

// Populate stores id in w unless an identity with the same label exists.
func Populate(w *gateway.Wallet, id Identity) error {
	if w.Exists(id.Label) {
		return nil
	}

	cert, err := os.ReadFile(filepath.Clean(id.CertPath))
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}
	keyPath, err := privateKeyPath(id.KeyDir)
	if err != nil {
		return err
	}
	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}

	if err := w.Put(id.Label, gateway.NewX509Identity(id.MSPID, string(cert), string(key))); err != nil {
		return err
	}
	log.Info().Str("label", id.Label).Str("msp", id.MSPID).Msg("identity added to wallet")
	return nil
}

// privateKeyPath prefers the "*_sk" file Fabric CA writes, else the first regular file.
func privateKeyPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read key directory: %w", err)
	}
	first := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), "_sk") {
			return filepath.Join(dir, e.Name()), nil
		}
		if first == "" {
			first = filepath.Join(dir, e.Name())
		}
	}
	if first == "" {
		return "", fmt.Errorf("no private key found in directory %s", dir)
	}
	return first, nil
}
