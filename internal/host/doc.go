// Package host abstracts the scene graph of the content-creation host.
//
// Export code only needs three things from the host: list the immediate
// children of a container node, set a string parameter on a node, and press a
// button parameter. Container and Node capture exactly that surface so the
// export configurator can run against a live host session (see package
// hython) or against the in-memory Scene used by tests and dry runs.
package host
