/*
Package script provides buttons whose behavior is a JavaScript program run
in a goja sandbox.

A script defines an execute function and, optionally, a render function:

	function execute(e) {
	    e.set("clicks", (e.get("clicks") || 0) + 1)
	    if (e.action === "pickup") e.open("items")
	    return true
	}

	function render(e) {
	    return { key: "paper", amount: e.get("clicks") || 1 }
	}

execute returns the cancel decision (a missing return cancels). The event
object exposes the clicked slot, window, identity, action and items, the
session cache through get/set, and navigation through open, openCluster,
back, close, chat and update. Navigation failures surface as the button's
execution error.

Runtimes are pooled and reset after every call, so scripts share no state
other than the session cache. Every call runs under a timeout.
*/
package script
