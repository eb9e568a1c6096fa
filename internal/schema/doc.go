// Package schema declares the on-disk shapes of the configuration surfaces.
// These structs carry format tags only; loaders translate them into the
// format-agnostic model in the config package.
//
// Key and section names are a contract with the operator and with the
// systems that consume the generated files: they must not be renamed.
package schema
