package config

// ConfigFileNames are looked up, in order, in every directory FindConfig
// visits.
var ConfigFileNames = []string{"boxpiler.yaml", "boxpiler.yml"}

// ASTFileExtensions are the AST document extensions batch and watch pick
// up when the configuration names none.
var ASTFileExtensions = []string{".json", ".yaml", ".yml"}

// Output defaults
const (
	DefaultBaseClass  = "BoxTemplate"
	DefaultReturnType = "Object"
	DefaultSourceType = "BOXSCRIPT"
)

// Cache, log and service defaults
const (
	DefaultCachePath   = ".boxpiler/cache.db"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "auto"
	DefaultServiceAddr = "127.0.0.1:7543"
)

// SourceTypes lists the BoxSourceType constants a unit can be stamped with.
var SourceTypes = []string{"BOXSCRIPT", "BOXTEMPLATE", "CFSCRIPT", "CFTEMPLATE"}
