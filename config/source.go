package config

// Source is the layer a resolved value came from. Later layers in the list
// below override earlier ones.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global" // ~/.config/build-tools/config.yaml
	SourceLocal   Source = "local"  // .build-tools.yaml in the git root
	SourceEnv     Source = "env"    // BUILD_TOOLS_<KEY>
	SourceFlag    Source = "flag"
)

// Origin describes where key's value came from in terms a user can act
// on: the file or variable to edit.
func (r *Resolver) Origin(key string, src Source) string {
	switch src {
	case SourceGlobal:
		return r.globalPath
	case SourceLocal:
		return r.localPath
	case SourceEnv:
		return EnvName(r.config.EnvPrefix, key)
	default:
		return string(src)
	}
}
