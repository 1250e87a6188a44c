package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SecurityMethod defines the credential storage method
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

// CredentialStore manages provider API keys, either as a plain JSON file
// or AES-GCM encrypted with a key derived from an SSH private key.
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string // providerID -> API key
	sshKeyPath  string
	passphrase  string
	encManager  *EncryptionManager
}

func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	if method == "" {
		method = SecurityPlainText
	}
	return &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
		sshKeyPath:  sshKeyPath,
	}
}

// SetPassphrase sets the passphrase for decrypting the SSH key
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.passphrase = passphrase
	if c.encManager != nil {
		c.encManager.SetPassphrase(passphrase)
	}
}

// Load loads credentials from disk based on the configured security method
func (c *CredentialStore) Load(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		creds, err := loadPlainText(dataDir)
		if err != nil {
			return err
		}
		c.credentials = creds
		return nil

	case SecuritySSHKey:
		creds, err := c.loadEncrypted(dataDir)
		if err != nil {
			return err
		}
		c.credentials = creds
		return nil

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Save saves credentials to disk based on the configured security method
func (c *CredentialStore) Save(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		return savePlainText(dataDir, c.credentials)

	case SecuritySSHKey:
		return c.saveEncrypted(dataDir)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Get retrieves a credential for a provider
func (c *CredentialStore) Get(providerID string) string {
	return c.credentials[providerID]
}

// Set stores a credential for a provider
func (c *CredentialStore) Set(providerID string, apiKey string) {
	c.credentials[providerID] = apiKey
}

// Delete removes a credential for a provider
func (c *CredentialStore) Delete(providerID string) {
	delete(c.credentials, providerID)
}

func credentialsPath(dataDir string, encrypted bool) string {
	if encrypted {
		return filepath.Join(dataDir, "credentials.enc")
	}
	return filepath.Join(dataDir, "credentials.json")
}

func loadPlainText(dataDir string) (map[string]string, error) {
	path := credentialsPath(dataDir, false)
	if !FileExists(path) {
		return make(map[string]string), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds := make(map[string]string)
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

func savePlainText(dataDir string, creds map[string]string) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	path := credentialsPath(dataDir, false)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) ensureEncManager() error {
	if c.encManager != nil {
		return nil
	}

	mgr := NewEncryptionManager(EncryptionSSHKey, c.sshKeyPath)
	mgr.SetPassphrase(c.passphrase)
	if err := mgr.Initialize(); err != nil {
		return err
	}
	c.encManager = mgr
	return nil
}

func (c *CredentialStore) loadEncrypted(dataDir string) (map[string]string, error) {
	path := credentialsPath(dataDir, true)
	if !FileExists(path) {
		return make(map[string]string), nil
	}

	if err := c.ensureEncManager(); err != nil {
		return nil, err
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	plaintext, err := c.encManager.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	creds := make(map[string]string)
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

func (c *CredentialStore) saveEncrypted(dataDir string) error {
	if err := c.ensureEncManager(); err != nil {
		return err
	}

	plaintext, err := json.Marshal(c.credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	ciphertext, err := c.encManager.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	path := credentialsPath(dataDir, true)
	if err := os.WriteFile(path, ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
