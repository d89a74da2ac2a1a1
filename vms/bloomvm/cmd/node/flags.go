// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"encoding/json"
	"os"

	"github.com/luxfi/ids"
	"github.com/spf13/pflag"

	"github.com/luxfi/coherence/vms/bloomvm/config"
)

const (
	DataDirKey       = "data-dir"
	ConfigFileKey    = "config-file"
	GenesisFileKey   = "genesis-file"
	APIAddressKey    = "api-address"
	MineKey          = "mine"
	ParallelismKey   = "parallelism"
	RewardAddressKey = "reward-address"
	TracingKey       = "tracing"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(DataDirKey, "bloomd-data", "Directory holding the chain database")
	flags.String(ConfigFileKey, "", "JSON chain config; defaults are used if empty")
	flags.String(GenesisFileKey, "", "JSON genesis; the default genesis is used if empty")
	flags.String(APIAddressKey, "", "Address the API listens on; overrides the config file")
	flags.Bool(MineKey, true, "Mine blocks on the tip; overrides the config file")
	flags.Int(ParallelismKey, 0, "Concurrent mining attempts; overrides the config file")
	flags.String(RewardAddressKey, "", "Address paid by mined coinbases; overrides the config file")
	flags.Bool(TracingKey, false, "Report block building spans to OpenTelemetry; overrides the config file")
}

type Config struct {
	DataDir      string
	VM           config.Config
	GenesisBytes []byte
}

// ParseFlags loads the config and genesis files and applies every flag that
// was set explicitly on top of them.
func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	dataDir, err := flags.GetString(DataDirKey)
	if err != nil {
		return nil, err
	}

	configBytes, err := readOptional(flags, ConfigFileKey)
	if err != nil {
		return nil, err
	}
	vmConfig, err := config.Parse(configBytes)
	if err != nil {
		return nil, err
	}

	genesisBytes, err := readOptional(flags, GenesisFileKey)
	if err != nil {
		return nil, err
	}

	if flags.Changed(APIAddressKey) {
		vmConfig.APIAddress, err = flags.GetString(APIAddressKey)
		if err != nil {
			return nil, err
		}
	}
	if flags.Changed(MineKey) {
		vmConfig.MiningEnabled, err = flags.GetBool(MineKey)
		if err != nil {
			return nil, err
		}
	}
	if flags.Changed(ParallelismKey) {
		vmConfig.MiningParallelism, err = flags.GetInt(ParallelismKey)
		if err != nil {
			return nil, err
		}
	}
	if flags.Changed(RewardAddressKey) {
		addrStr, err := flags.GetString(RewardAddressKey)
		if err != nil {
			return nil, err
		}
		vmConfig.RewardAddress, err = ids.ShortFromString(addrStr)
		if err != nil {
			return nil, err
		}
	}
	if flags.Changed(TracingKey) {
		vmConfig.TracingEnabled, err = flags.GetBool(TracingKey)
		if err != nil {
			return nil, err
		}
	}
	if err := vmConfig.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		DataDir:      dataDir,
		VM:           vmConfig,
		GenesisBytes: genesisBytes,
	}, nil
}

// ConfigBytes returns the VM config in the form VM.Initialize expects.
func (c *Config) ConfigBytes() ([]byte, error) {
	return json.Marshal(c.VM)
}

func readOptional(flags *pflag.FlagSet, key string) ([]byte, error) {
	path, err := flags.GetString(key)
	if err != nil || path == "" {
		return nil, err
	}
	return os.ReadFile(path)
}
