package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-h", "-k", "-u", "-p", "-m", "-l", "-r", "-b", "-t", "-e", "-g"}

// ValueFlags are the flags LoadConfig reads that take a separate value.
var ValueFlags = []string{
	"-a", "-d", "-s", "-h", "-k", "-u", "-p", "-m", "-l", "-r", "-b", "-t", "-e",
	"-c", "-config", "--config", "-env-file", "--env-file",
}

// parseFlags populates Config from command-line flags.
//
//	-a string   HTTP listen address (":5000")
//	-d string   database DSN or SQLite path
//	-s string   server secret (key derivation and session signing)
//	-h string   upstream API host
//	-k string   fallback upstream API key
//	-u string   seed username
//	-p string   seed password
//	-m int      max failed logins before lockout
//	-l int      lockout duration, minutes
//	-r int      max reference images per draw
//	-b int      max inline reference image size, bytes
//	-t int      upstream timeout, seconds
//	-e int      session lifetime, hours
//	-g bool     treat unauthenticated requests as the seed user
//
// Only these flags are looked at; -c and -env-file are handled earlier.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.APIHost, "h", config.APIHost, "upstream API host")
	fs.StringVar(&config.APIKey, "k", config.APIKey, "fallback upstream API key")
	fs.StringVar(&config.SeedUsername, "u", config.SeedUsername, "seed username")
	fs.StringVar(&config.SeedPassword, "p", config.SeedPassword, "seed password")
	fs.IntVar(&config.MaxLoginAttempts, "m", config.MaxLoginAttempts, "max login attempts")
	fs.IntVar(&config.MaxReferenceImages, "r", config.MaxReferenceImages, "max reference images")
	fs.Int64Var(&config.MaxReferenceImageBytes, "b", config.MaxReferenceImageBytes, "max reference image bytes")
	fs.BoolVar(&config.AutoLoginDefault, "g", config.AutoLoginDefault, "auto login as seed user")

	lockMinutes := fs.Int("l", int(config.LockDuration.Minutes()), "lock duration (in minutes)")
	timeoutSeconds := fs.Int("t", int(config.UpstreamTimeout.Seconds()), "upstream timeout (in seconds)")
	ttlHours := fs.Int("e", int(config.SessionTTL.Hours()), "session ttl (in hours)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l":
			config.LockDuration = time.Duration(*lockMinutes) * time.Minute
		case "t":
			config.UpstreamTimeout = time.Duration(*timeoutSeconds) * time.Second
		case "e":
			config.SessionTTL = time.Duration(*ttlHours) * time.Hour
		}
	})
	return nil
}
