// Package provider defines the capability contracts every external service
// adapter implements and the Manager that selects, instantiates and
// credentials them.
//
// A provider is one adapter type (GitHubProvider, CircleCIProvider, ...)
// that fills one or more roles:
//
//   - git: hosts the repository and lists pull requests
//   - ci: receives build variables and runs tests
//   - site: hosts the application and its multidev environments
//
// Providers are listed in a compile-time table of Registrations rather than
// loaded by name. The Manager resolves short aliases against that table:
//
//	mgr := provider.NewManager(provider.ManagerConfig{
//	    Registrations: registry.Default(),
//	    Credentials:   creds,
//	})
//	ci, err := mgr.CreateProvider("circle", provider.CapabilityCI)
//	if err != nil {
//	    return err
//	}
//	mgr.InitializeProvider(ci)
//	// ... resolve credentials (options, environment, prompts)
//	if err := mgr.ValidateCredentials(); err != nil {
//	    return err
//	}
package provider
