package enrich

// enrichmentSystemPrompt instructs the model to return the exact field set
// the sanitizer expects. The sanitizer still enforces every rule afterwards.
const enrichmentSystemPrompt = `You identify vinyl records from loose user input and catalog search candidates.
Respond with JSON only, exactly this shape:
{
  "artist": {"name": "", "countryCode": "", "countryName": null, "discogsArtistId": 0},
  "record": {"title": "", "yearOriginal": "", "format": "", "discogsMasterId": 0, "discogsReleaseId": 0}
}
Rules:
- name and title are proper display forms of the artist and record, corrected for casing and obvious typos.
- countryCode is the ISO-3166-1 alpha-2 code of the artist's country of origin, inferred from general knowledge. Use "XX" when unknown or low confidence. countryName is the English country name, or null when countryCode is "XX".
- yearOriginal is the first release year of the record, "YYYY" between 1900 and next year, or "0000" when unknown.
- format is one of: "33T" (album-length LP), "45T" (7-inch single), "Maxi45T" (12-inch or maxi single), "78T" (pre-1958 shellac), "Mixte" (multiple speeds), "Inconnu" (unknown).
- discogsArtistId, discogsMasterId, discogsReleaseId come from the matching candidate, or 0 when no candidate matches.`

// countrySystemPrompt drives the single follow-up request issued when the
// main call could not determine a country.
const countrySystemPrompt = `You answer with the country of origin of a music artist.
Respond with JSON only: {"countryCode": "", "countryName": ""}.
countryCode is the ISO-3166-1 alpha-2 code, or "XX" when unknown. countryName is the English country name.`
