// Package config resolves build-tools settings from layered sources.
//
// Precedence, highest first:
//  1. Command-line flags (ResolveWithFlags)
//  2. Environment variables (BUILD_TOOLS_<KEY>)
//  3. Local config (.build-tools.yaml in the git root)
//  4. Global config (~/.config/build-tools/config.yaml)
//  5. Built-in defaults
//
// # Basic Usage
//
//	resolver := config.NewAppResolver(os.LookupEnv)
//	resolved := resolver.Resolve()
//	settings, err := config.NewSettings(resolved)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(settings.WorkflowMaxWait)                  // 10m0s
//	fmt.Println(resolved.Source(config.KeyWorkflowMaxWait)) // "default"
//
// The environment is reached only through ResolverConfig.LookupEnv, so
// tests and callers that load a .env file can supply their own lookup.
//
// # Config Sources
//
// Each resolved value tracks where it came from:
//   - "default": Built-in default value
//   - "global": ~/.config/build-tools/config.yaml
//   - "local": .build-tools.yaml in git root
//   - "env": Environment variable
//   - "flag": Command-line flag
package config
