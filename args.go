package cexec

import "slices"

// ArgBuilder accumulates an argument vector for one CLI invocation, e.g.
//
//	NewArgs("run").Flag("rm").Option("name", "web").Raw("--cap-add=NET_ADMIN").Arg("nginx").Build()
//
// Tokens are kept in the order they were added.
type ArgBuilder struct {
	args []string
}

// NewArgs starts an argument vector, typically with the subcommand words.
func NewArgs(subcommand ...string) *ArgBuilder {
	return &ArgBuilder{args: slices.Clone(subcommand)}
}

// Arg adds a positional argument.
func (b *ArgBuilder) Arg(arg string) *ArgBuilder {
	b.args = append(b.args, arg)
	return b
}

// Args adds several positional arguments.
func (b *ArgBuilder) Args(args ...string) *ArgBuilder {
	b.args = append(b.args, args...)
	return b
}

// Flag adds a boolean long flag: Flag("rm") adds "--rm".
func (b *ArgBuilder) Flag(name string) *ArgBuilder {
	b.args = append(b.args, "--"+name)
	return b
}

// FlagIf adds the flag only when cond is true.
func (b *ArgBuilder) FlagIf(cond bool, name string) *ArgBuilder {
	if cond {
		return b.Flag(name)
	}

	return b
}

// Option adds "--name value". Empty values are skipped.
func (b *ArgBuilder) Option(name, value string) *ArgBuilder {
	if value == "" {
		return b
	}

	b.args = append(b.args, "--"+name, value)

	return b
}

// Options repeats an option once per value, e.g. several --env or --volume.
func (b *ArgBuilder) Options(name string, values ...string) *ArgBuilder {
	for _, v := range values {
		b.Option(name, v)
	}

	return b
}

// Raw appends tokens verbatim. It is the escape hatch for flags the typed
// methods do not model.
func (b *ArgBuilder) Raw(tokens ...string) *ArgBuilder {
	b.args = append(b.args, tokens...)
	return b
}

// Build returns a copy of the accumulated vector.
func (b *ArgBuilder) Build() []string {
	return slices.Clone(b.args)
}
