// Package blueprint loads declarative menu definitions.
//
// A blueprint describes one cluster: its main menu, cluster-wide buttons and
// windows with their slot bindings. Blueprints are written in YAML, JSON or
// TOML:
//
//	cluster: shop
//	main_menu: home
//	windows:
//	  - id: home
//	    size: 9
//	    buttons:
//	      - {id: to_items, type: link, slot: 4, target: items, icon: {key: chest}}
//	  - id: items
//	    size: 27
//	    permission: shop.items
//
// The Seeder applies every blueprint found under a directory to an engine.
package blueprint
