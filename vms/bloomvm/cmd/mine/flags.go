// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mine

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/vms/bloomvm/config"
)

const (
	ConfigFileKey = "config-file"
	SeedKey       = "seed"
	VerifyKey     = "verify"
	ProfileDirKey = "profile-dir"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "JSON chain config whose coherence params are used; defaults are used if empty")
	flags.Uint64(SeedKey, 0, "Seed of the attempt")
	flags.Bool(VerifyKey, true, "Verify the certificate of a sealed attempt")
	flags.String(ProfileDirKey, "", "Directory CPU and heap profiles of the attempt are written to; profiling is off if empty")
}

type Config struct {
	Params coherence.Params
	Seed   uint64
	Verify bool
	// ProfileDir is empty if profiling is disabled.
	ProfileDir string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	configPath, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	var configBytes []byte
	if configPath != "" {
		configBytes, err = os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
	}
	vmConfig, err := config.Parse(configBytes)
	if err != nil {
		return nil, err
	}

	seed, err := flags.GetUint64(SeedKey)
	if err != nil {
		return nil, err
	}

	verify, err := flags.GetBool(VerifyKey)
	if err != nil {
		return nil, err
	}

	profileDir, err := flags.GetString(ProfileDirKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		Params:     vmConfig.Coherence,
		Seed:       seed,
		Verify:     verify,
		ProfileDir: profileDir,
	}, nil
}
