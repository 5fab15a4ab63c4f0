package actors

import (
	"os"

	"github.com/spf13/viper"
	"timelock/engine/library"
)

// ReplayGenesis is the replay hash a fresh account must present with its first request.
const ReplayGenesis library.Sha256 = "24c30ad7f036ed49379b5d1209836d1ff6795adb34da2d3e4cabc47dc9dfef21"

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/timelock/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	SetDefaults(config)
	// Create our working directory and config file if not exist
	initRootDir(config)
	touch(config.GetString("rootDir") + "config.yaml")
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
}

// SetDefaults registers every key the engine reads. It does not touch the disk.
func SetDefaults(config *viper.Viper) {
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("doNotPublish", false)
	config.SetDefault("relays", []string{"wss://nostr.688.org"})
	// memory or redis
	config.SetDefault("store", "memory")
	config.SetDefault("redisAddr", "127.0.0.1:6379")
	// the original program refuses deadlines that are not in the future
	config.SetDefault("requireFutureUnlock", true)
	// pubkeys allowed to publish block headers that advance the ledger clock
	config.SetDefault("clockOracles", []string{})
	// account -> spendable balance credited once when the store is empty
	config.SetDefault("genesisBalances", map[string]uint64{})
	config.SetDefault("metricsAddr", "127.0.0.1:9311")
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 0)
		}
	}
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}
