package federation

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/verihub/pkg/state"
)

const certCacheSize = 256

// registryFile is the on-disk shape of the federation configuration.
type registryFile struct {
	Entities []*EntityConfig `yaml:"entities"`
}

// Registry answers federation-standing questions for the hub: is this
// entity known, enabled, what certificates does it sign with, which
// matching service serves this relying party. Backed by a YAML file
// that can be hot-reloaded.
type Registry struct {
	path string
	log  *logrus.Logger

	mu       sync.RWMutex
	entities map[string]*EntityConfig

	hookMu      sync.Mutex
	reloadHooks []func()

	certs *lru.Cache[string, []*x509.Certificate]
}

// NewRegistry loads the federation file at path. A nil logger gets a
// default logrus logger.
func NewRegistry(path string, log *logrus.Logger) (*Registry, error) {
	if log == nil {
		log = logrus.New()
	}

	certs, err := lru.New[string, []*x509.Certificate](certCacheSize)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		path:  path,
		log:   log,
		certs: certs,
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load re-reads the federation file, replacing the in-memory view
// atomically and dropping cached certificates.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read federation config: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse federation config: %w", err)
	}

	entities := make(map[string]*EntityConfig, len(file.Entities))
	for _, e := range file.Entities {
		if e.EntityID == "" {
			return fmt.Errorf("federation config contains an entry without entity_id")
		}
		if _, dup := entities[e.EntityID]; dup {
			return fmt.Errorf("federation config contains duplicate entity %s", e.EntityID)
		}
		entities[e.EntityID] = e
	}

	r.mu.Lock()
	r.entities = entities
	r.mu.Unlock()
	r.certs.Purge()

	r.log.WithFields(logrus.Fields{
		"path":     r.path,
		"entities": len(entities),
	}).Info("federation config loaded")

	r.hookMu.Lock()
	hooks := make([]func(), len(r.reloadHooks))
	copy(hooks, r.reloadHooks)
	r.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// OnReload registers fn to run after every successful Load. Consumers
// that derive state from federation data (trust stores, resolved
// endpoints) use it to drop what they cached from the previous view.
func (r *Registry) OnReload(fn func()) {
	r.hookMu.Lock()
	r.reloadHooks = append(r.reloadHooks, fn)
	r.hookMu.Unlock()
}

// Entity returns the configuration for an entity id.
func (r *Registry) Entity(entityID string) (*EntityConfig, error) {
	r.mu.RLock()
	e, ok := r.entities[entityID]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{EntityID: entityID}
	}
	return e, nil
}

// RequireEnabled returns the entity config, failing with DisabledError
// if the hub must not transact with it. Controllers consult this before
// committing transitions that depend on an external party's standing.
func (r *Registry) RequireEnabled(entityID string) (*EntityConfig, error) {
	e, err := r.Entity(entityID)
	if err != nil {
		return nil, err
	}
	if !e.Enabled {
		return nil, &DisabledError{EntityID: entityID}
	}
	return e, nil
}

// EnabledIdentityProviders lists IDP (and country, when eidas is true)
// entity ids able to serve one of the wanted levels of assurance.
func (r *Registry) EnabledIdentityProviders(eidas bool, wanted ...state.LevelOfAssurance) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, e := range r.entities {
		if !e.Enabled {
			continue
		}
		switch e.Type {
		case EntityTypeIdp:
		case EntityTypeCountry:
			if !eidas {
				continue
			}
		default:
			continue
		}
		if len(wanted) > 0 && !e.SupportsLevel(wanted...) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// CertificatesFor parses and caches the trust certificates of an
// entity. Satisfies the saml engine's CertificateSource.
func (r *Registry) CertificatesFor(entityID string) ([]*x509.Certificate, error) {
	if certs, ok := r.certs.Get(entityID); ok {
		return certs, nil
	}

	e, err := r.RequireEnabled(entityID)
	if err != nil {
		return nil, err
	}
	if len(e.Certificates) == 0 {
		return nil, fmt.Errorf("entity %s has no certificates configured", entityID)
	}

	certs := make([]*x509.Certificate, 0, len(e.Certificates))
	for i, certPEM := range e.Certificates {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			return nil, fmt.Errorf("entity %s certificate %d is not valid PEM", entityID, i)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("entity %s certificate %d: %w", entityID, i, err)
		}
		certs = append(certs, cert)
	}

	r.certs.Add(entityID, certs)
	return certs, nil
}

// Watch reloads the registry whenever the federation file changes,
// until ctx is cancelled. Reload failures keep the previous view.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: editors and config-map mounts replace the
	// file rather than writing it in place.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(r.path), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := r.Load(); err != nil {
					r.log.WithError(err).Warn("federation config reload failed, keeping previous view")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.WithError(err).Warn("federation config watcher error")
			}
		}
	}()

	return nil
}
