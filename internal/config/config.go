package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	Database Database `envPrefix:"DB_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Invoice  Invoice  `envPrefix:"INVOICE_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	// Driver selects the gorm driver: "mysql" in production, "sqlite" for
	// local development.
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	URL    string `env:"URL" envDefault:"billing.db"`
	Seed   bool   `env:"SEED" envDefault:"false"`
}

type Auth struct {
	// TokenSecret enables the bearer-token middleware; empty disables auth
	// (development only).
	TokenSecret string `env:"TOKEN_SECRET"`
}

type Invoice struct {
	// PdfDir is where rendered invoice PDFs live; batch delete removes the
	// artifact alongside the row.
	PdfDir string `env:"PDF_DIR"`
}
