package roster

// File is the root structure of a roster yaml file.
//
//	services: [corewar-n2, mambo, ...]
//	pending:  [web4factory]
//	teams:    [OSUSEC, Shellphish, ...]
//	boosted:  [Shellphish]
type File struct {
	Services []string `yaml:"services"`
	Pending  []string `yaml:"pending"`
	Teams    []string `yaml:"teams"`
	Boosted  []string `yaml:"boosted"`
}
