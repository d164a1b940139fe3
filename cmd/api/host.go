package main

import "net/url"

// hostOf returns the host[:port] part of a public URL
func hostOf(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Host == "" {
		return publicURL
	}
	return u.Host
}
