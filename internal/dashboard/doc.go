// Package dashboard prepares an embedded web view for the hub's
// dashboard UI without prompting the user to log in.
//
// The bootstrap sequence is strictly ordered: load a blank page so the
// view has a same-origin document to script against, inject the stored
// credential into web storage, then navigate to the hub. Navigating
// first would let the dashboard boot and see no session; injecting
// first would write into whatever origin the view happens to be on.
package dashboard
