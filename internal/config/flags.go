package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-d string   database DSN
//	-a string   daemon gRPC bind address
//	-s string   session token HMAC key
//	-t int      session token validity, minutes
//	-u string   profile id
//	-l string   log level
//	-ht uint    argon2id passes
//	-hm uint    argon2id memory, KiB
//	-hp uint    argon2id threads
//
// Unknown flags are filtered out first so -c/-config and flags of other
// components pass through.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-a", "-s", "-t", "-u", "-l", "-ht", "-hm", "-hp"})

	fs := flag.NewFlagSet("stealthdetect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "daemon gRPC address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret key")
	validity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session token validity (in minutes)")
	fs.StringVar(&config.UserID, "u", config.UserID, "profile id")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	hashTime := fs.Uint("ht", uint(config.HashTime), "argon2id passes")
	hashMem := fs.Uint("hm", uint(config.HashMemoryKiB), "argon2id memory (KiB)")
	hashThreads := fs.Uint("hp", uint(config.HashThreads), "argon2id threads")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if *hashThreads > 255 {
		return fmt.Errorf("failed to parse flags: -hp %d out of range", *hashThreads)
	}

	// -t is whole minutes; leave a finer file value alone unless the flag is given.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTokenValidityDuration = time.Duration(*validity) * time.Minute
		}
	})
	config.HashTime = uint32(*hashTime)
	config.HashMemoryKiB = uint32(*hashMem)
	config.HashThreads = uint8(*hashThreads)
	return nil
}
