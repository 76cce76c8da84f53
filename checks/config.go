package checks

import "fmt"

// Config is a configuration for the cardcheck application
type Config struct {
	// HTTPAddr is where the report server listens. Empty disables it.
	HTTPAddr string
	// Backend selects the check store: "mem" or "pg".
	Backend string
	DSN     string
	// HashKey peppers the HMAC stored instead of the card number in Postgres.
	HashKey string
	// AMQPURL enables publishing every check when set.
	AMQPURL   string
	AMQPQueue string
}

func DefaultConfig() *Config {
	return &Config{
		Backend:   "mem",
		HashKey:   "dev-secret-pepper",
		AMQPQueue: "card_checks",
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case "mem":
	case "pg":
		if c.DSN == "" {
			return fmt.Errorf("DB_DSN is required for pg backend")
		}
	default:
		return fmt.Errorf("unsupported REPO_BACKEND=%s", c.Backend)
	}
	if c.AMQPURL != "" && c.AMQPQueue == "" {
		return fmt.Errorf("AMQP_QUEUE is required when AMQP_URL is set")
	}
	return nil
}
