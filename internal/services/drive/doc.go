// Package drive uploads produced files to the team's Google Drive.
//
// Project folders are looked up by name and files land in a named subfolder
// of the project folder (assets by default). Credentials follow the
// installed-application OAuth flow: the client secret JSON is downloaded
// from the cloud console, and the user token is stored beside it after
// running "vnpipe drive auth". Refreshed tokens are written back to disk.
package drive
