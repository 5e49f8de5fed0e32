// File: lixenwraith/config/doc.go

// Package config provides layered, case-insensitive key/value configuration
// for Go applications. Every source flattens its input into colon-delimited
// paths such as "Data:Inventory:ConnectionString", and lookups ignore case.
//
// Sources:
//   - Command-line arguments (key=value, --key=value, /key=value, --key value)
//     with a switch mapping table for short (-k) and aliased switches
//   - XML documents, with the Name attribute naming repeated elements
//   - Environment variables, with "__" standing in for ":" and the
//     MYSQLCONNSTR_/SQLAZURECONNSTR_/SQLCONNSTR_/CUSTOMCONNSTR_ conventions
//   - INI, TOML, YAML, JSON and HCL files
//   - In-memory maps, typically defaults
//
// Precedence:
// Sources are consulted from the most recently added to the first; the
// first source that defines a path supplies its value.
//
//	cfg := config.New()
//	cfg.Add(config.NewMemorySource(map[string]string{"Server:Port": "8080"}))
//	xmlSrc, _ := config.NewXMLFileSource("app.xml")
//	cfg.AddOptional(xmlSrc)
//	cliSrc, _ := config.NewCommandLineSource(os.Args[1:], map[string]string{"-p": "Server:Port"})
//	cfg.Add(cliSrc)
//	if err := cfg.Load(); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
//	    log.Fatal(err)
//	}
//	port, _ := cfg.Get("server:port")
//
// The same stack through the builder:
//
//	cfg, err := config.NewBuilder().
//	    WithDefaults(map[string]string{"Server:Port": "8080"}).
//	    WithFile("app.xml").
//	    WithEnvironment("MYAPP_").
//	    WithArgs(os.Args[1:]).
//	    WithSwitchMappings(map[string]string{"-p": "Server:Port"}).
//	    Build()
//
// Values are strings. Scan decodes a section into a struct of string
// fields (or maps of strings) using the "config" struct tag.
//
// Thread Safety:
// A source publishes a fully built store on each successful Load, so reads
// are safe while a reload is in progress and never observe partial results.
package config
