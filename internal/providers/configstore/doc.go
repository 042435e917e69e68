// Package configstore is a nested key/value document addressed by dotted
// paths ("titles.shop.home"). A store may be linked to a JSON, YAML or TOML
// file and reloaded from it; the language and permission providers are built
// on it.
package configstore
