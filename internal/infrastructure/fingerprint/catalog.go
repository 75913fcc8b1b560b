package fingerprint

import "wabridge/internal/domain/entity"

// catalog is the fixed set of plausible desktop WhatsApp Web client
// identifiers rotation draws from. Triples are deliberately unremarkable
// desktop browser/OS combinations, not the bridge's own identity.
var catalog = []entity.Fingerprint{
	{OS: "Windows", Product: "Chrome", Version: "124.0.6367.91"},
	{OS: "Windows", Product: "Edge", Version: "123.0.2420.81"},
	{OS: "Mac OS", Product: "Safari", Version: "17.4"},
	{OS: "Mac OS", Product: "Chrome", Version: "123.0.6312.122"},
	{OS: "Linux", Product: "Firefox", Version: "124.0.1"},
}

// legacyTriple is written on first run, matching the historical default
// reported by older installations for continuity with existing sessions.
var legacyTriple = catalog[0]
