package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", y.filename, err)
	}

	config := &ConfigData{}
	if err := yaml.Unmarshal(cfgFile, config); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", y.filename, err)
	}

	applyDefaults(config)

	y.config = config
	return config, nil
}

// applyDefaults fills in the defaults the rest of the system assumes
func applyDefaults(config *ConfigData) {
	for i := range config.Devices {
		d := &config.Devices[i]
		if d.PrimaryRainSensor == "" {
			d.PrimaryRainSensor = "tipper"
		}
		if d.Aggregation.RainDayThreshold == 0 {
			d.Aggregation.RainDayThreshold = 0.2 // one bucket tip
		}
		if d.Aggregation.RainSeasonStart == 0 {
			d.Aggregation.RainSeasonStart = 1
		}
		if d.Aggregation.HeatingBase == 0 {
			d.Aggregation.HeatingBase = 18.3
		}
		if d.Aggregation.CoolingBase == 0 {
			d.Aggregation.CoolingBase = 18.3
		}
		if d.Aggregation.ChillHourThreshold == 0 {
			d.Aggregation.ChillHourThreshold = 7.0
		}
		if d.Aggregation.GrowingBase == 0 {
			d.Aggregation.GrowingBase = 10.0
		}
		if d.Aggregation.SunshineThresholdPercent == 0 {
			d.Aggregation.SunshineThresholdPercent = 75
		}
	}
}

// GetDevices returns the device configurations
func (y *YAMLProvider) GetDevices() ([]DeviceData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Devices, nil
}

// GetDevice returns the configuration for a single named device
func (y *YAMLProvider) GetDevice(name string) (*DeviceData, error) {
	devices, err := y.GetDevices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device [%s] not found in configuration", name)
}

// GetStorageConfig returns the storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// GetControllers returns the controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true: YAML configs are not writable at runtime
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for the YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
