// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "ultrasuite")

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "ultrasuite.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.database", "ultrasuite")
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/ultrasuite.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("reconcile.timezone", "UTC")
	viper.SetDefault("reconcile.defaultpolicy", PolicyReview)
	viper.SetDefault("reconcile.applybatchsize", 100)
	viper.SetDefault("reconcile.lookupcachettl", 5*time.Minute)
	viper.SetDefault("reconcile.suggest.threshold", 0.95)
	viper.SetDefault("reconcile.suggest.striptokens", []string{"gal"})
	viper.SetDefault("reconcile.suggest.bucketbyfirstchar", true)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", "127.0.0.1:8080")
}
