package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var envKeys = []string{
	portEnv, dataFolderEnv, databaseURIEnv, storeDriverEnv, uploadsDirEnv, uploadsURLEnv,
	exportCronEnv, sessionSecretEnv, sessionTTLEnv, currencyEnv, localeEnv, logLevelEnv, shutdownEnv,
}

func validConfig() Config {
	return Config{
		Port:            "8080",
		StoreDriver:     "sqlite",
		DatabaseURI:     "orders.db",
		UploadsDir:      "uploads",
		ExportCron:      consts.CronDailyExport,
		SessionSecret:   "0123456789abcdef0123456789abcdef",
		SessionTTL:      time.Hour,
		Currency:        "CZK",
		Locale:          "cs",
		LogLevel:        "info",
		UploadsBaseURL:  "/uploads",
		ShutdownTimeout: consts.ShutdownTimeout,
	}
}

var _ = Describe("Config", func() {
	saved := map[string]string{}

	BeforeEach(func() {
		for _, k := range envKeys {
			if v, ok := os.LookupEnv(k); ok {
				saved[k] = v
			}
			os.Unsetenv(k)
		}
	})

	AfterEach(func() {
		for _, k := range envKeys {
			os.Unsetenv(k)
			if v, ok := saved[k]; ok {
				os.Setenv(k, v)
			}
		}
		clear(saved)
	})

	Describe("Load", func() {
		It("uses defaults when nothing is set", func() {
			cfg, err := Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal(consts.DefaultPort))
			Expect(cfg.StoreDriver).To(Equal("sqlite"))
			Expect(cfg.DatabaseURI).To(Equal(filepath.Join(".", consts.DefaultDatabaseFile)))
			Expect(cfg.UploadsDir).To(Equal(filepath.Join(".", consts.UploadsDir)))
			Expect(cfg.UploadsBaseURL).To(Equal(consts.UploadsRoutePath))
			Expect(cfg.ExportCron).To(Equal(consts.CronDailyExport))
			Expect(cfg.SessionTTL).To(Equal(consts.DefaultSessionTTL))
		})

		It("reads flags", func() {
			cfg, err := Load([]string{"-p", "9000", "-data", "/srv/shop"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal("9000"))
			Expect(cfg.UploadsDir).To(Equal("/srv/shop/uploads"))
			Expect(cfg.DatabaseURI).To(Equal("/srv/shop/orders.db"))
		})

		It("lets the environment override flags", func() {
			os.Setenv(portEnv, "7000")
			os.Setenv(sessionTTLEnv, "2h")
			os.Setenv(storeDriverEnv, "memory")
			cfg, err := Load([]string{"-p", "9000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal("7000"))
			Expect(cfg.SessionTTL).To(Equal(2 * time.Hour))
			Expect(cfg.StoreDriver).To(Equal("memory"))
			Expect(cfg.DatabaseURI).To(BeEmpty())
		})

		It("reports malformed durations from Validate", func() {
			os.Setenv(sessionTTLEnv, "soon")
			os.Setenv(shutdownEnv, "5")
			os.Setenv(sessionSecretEnv, "0123456789abcdef0123456789abcdef")
			cfg, err := Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.SessionTTL).To(Equal(consts.DefaultSessionTTL))

			err = cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("invalid SESSION_TTL 'soon'")))
			Expect(err).To(MatchError(ContainSubstring("invalid SHUTDOWN_TIMEOUT '5'")))
		})
	})

	Describe("Validate", func() {
		It("accepts a valid configuration", func() {
			cfg := validConfig()
			Expect(cfg.Validate()).To(Succeed())
		})

		It("rejects a non-numeric port", func() {
			cfg := validConfig()
			cfg.Port = "abc"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid port 'abc'")))
		})

		It("rejects an unknown store driver", func() {
			cfg := validConfig()
			cfg.StoreDriver = "mysql"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid store driver 'mysql'")))
		})

		It("requires a database URI for postgres", func() {
			cfg := validConfig()
			cfg.StoreDriver = "postgres"
			cfg.DatabaseURI = ""
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("database URI is required")))
		})

		It("rejects a bad cron spec", func() {
			cfg := validConfig()
			cfg.ExportCron = "every day"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid export cron spec")))
		})

		It("rejects currencies with more than two decimal places", func() {
			cfg := validConfig()
			cfg.Currency = "KWD"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("unsupported currency 'KWD'")))
		})

		It("rejects a non-positive shutdown timeout", func() {
			cfg := validConfig()
			cfg.ShutdownTimeout = 0
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid shutdown timeout")))
		})

		It("reports every problem at once", func() {
			cfg := validConfig()
			cfg.SessionSecret = "short"
			cfg.Currency = "XX"
			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("session secret")))
			Expect(err).To(MatchError(ContainSubstring("invalid currency 'XX'")))
		})
	})
})
