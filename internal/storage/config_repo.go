package storage

import (
	"github.com/google/uuid"
	"github.com/manav03panchal/projecthub/internal/model"
)

// ConfigRepo provides operations for the Config singleton.
type ConfigRepo struct {
	db *DB
}

// NewConfigRepo creates a new config repository.
func NewConfigRepo(db *DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

// Get retrieves the config, creating it with a fresh owner key on first use.
func (r *ConfigRepo) Get() (*model.Config, error) {
	result, _, err := r.db.GetOrCreate(model.KeyConfig, &model.Config{}, func() model.Model {
		ownerKey, err := uuid.NewV7()
		if err != nil {
			ownerKey = uuid.New()
		}
		return model.NewConfig(ownerKey.String())
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Config), nil
}

// Update updates the config.
func (r *ConfigRepo) Update(config *model.Config) error {
	return r.db.Set(config)
}

// NotifyConfigRepo provides operations for the NotifyConfig singleton.
type NotifyConfigRepo struct {
	db *DB
}

// NewNotifyConfigRepo creates a new notify config repository.
func NewNotifyConfigRepo(db *DB) *NotifyConfigRepo {
	return &NotifyConfigRepo{db: db}
}

// Get retrieves the notify config, returning defaults if none was saved.
func (r *NotifyConfigRepo) Get() (*model.NotifyConfig, error) {
	config := &model.NotifyConfig{}
	err := r.db.Get(model.KeyNotifyConfig, config)
	if err == nil {
		return config, nil
	}
	if !IsErrKeyNotFound(err) {
		return nil, err
	}
	return model.DefaultNotifyConfig(), nil
}

// Set validates and stores the notify config.
func (r *NotifyConfigRepo) Set(config *model.NotifyConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	config.Key = model.KeyNotifyConfig
	return r.db.Set(config)
}
