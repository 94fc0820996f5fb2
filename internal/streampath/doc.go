// Package streampath décode et encode l'identifiant de flux CDN embarqué dans
// les iframes du catalogue.
//
// Forme reconnue (la première occurrence gagne):
//
//	.../stream/<lettre>/<slug>/<NN>.mp4...
//
// <lettre> est une lettre ASCII, <slug> un segment non vide sans '/', guillemet,
// espace ni chevron, <NN> au moins deux chiffres. Le Path extrait vaut
// "<lettre>/<slug>" et respecte la casse.
package streampath
