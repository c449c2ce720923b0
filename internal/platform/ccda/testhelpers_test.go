package ccda

import (
	"fmt"
	"strings"
)

type testEncounter struct {
	low    string // empty omits effectiveTime/low
	id     string // empty omits the id element
	noTime bool
}

// encountersDocument renders a minimal CCD whose Encounters section holds the
// given entries. Extra sections are placed before it.
func encountersDocument(encs []testEncounter, extraSections ...string) string {
	var entries strings.Builder
	for _, e := range encs {
		entries.WriteString(`<entry typeCode="DRIV"><encounter classCode="ENC" moodCode="EVN">`)
		entries.WriteString(`<templateId root="` + OIDEncounterEntry + `"/>`)
		if e.id != "" {
			entries.WriteString(`<id root="` + e.id + `"/>`)
		}
		entries.WriteString(`<code code="99213" displayName="Office visit"/>`)
		if !e.noTime {
			if e.low != "" {
				entries.WriteString(`<effectiveTime><low value="` + e.low + `"/></effectiveTime>`)
			} else {
				entries.WriteString(`<effectiveTime/>`)
			}
		}
		entries.WriteString(`</encounter></entry>`)
	}

	section := fmt.Sprintf(`<component><section>
<templateId root="%s"/>
<code code="%s" codeSystem="2.16.840.1.113883.6.1"/>
<title>Encounters</title>
%s
</section></component>`, OIDEncountersSection, LOINCEncounters, entries.String())

	return document(strings.Join(extraSections, "\n") + section)
}

func document(sections string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<title>Continuity of Care Document</title>
<component><structuredBody>
` + sections + `
</structuredBody></component>
</ClinicalDocument>`
}

func problemsSection() string {
	return `<component><section>
<code code="11450-4" codeSystem="2.16.840.1.113883.6.1"/>
<title>Problems</title>
<entry><act classCode="ACT" moodCode="EVN"><id root="prob-1"/></act></entry>
</section></component>`
}
