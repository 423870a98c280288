// discovery/disposable.go
package discovery

import "strings"

// Disposable-mail providers are a dead end for prospecting: patterns built on
// a throwaway domain are never a person's corporate address. The list covers
// the providers seen most often in lead imports.
var disposableDomains = loadDisposableDomains()

// IsDisposableDomain reports whether domain belongs to a known
// disposable-mail provider.
func IsDisposableDomain(domain string) bool {
	return disposableDomains[NormalizeDomain(domain)]
}

func loadDisposableDomains() map[string]bool {
	domains := make(map[string]bool)
	for _, d := range strings.Split(disposableDomainList, "\n") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains[d] = true
		}
	}
	return domains
}

const disposableDomainList = `
mailinator.com
mailinator.net
mailinator.org
tempmail.org
temp-mail.org
temp-mail.io
10minutemail.com
20minutemail.com
30minutemail.com
60minutemail.com
guerrillamail.com
guerrillamail.net
guerrillamail.org
guerrillamail.biz
guerrillamail.de
sharklasers.com
trashmail.com
trashmail.net
trashmail.de
trashmail.me
trash-mail.com
mailmetrash.com
yopmail.com
yopmail.fr
yopmail.net
maildrop.cc
dispostable.com
discard.email
discardmail.com
fakeinbox.com
throwawaymail.com
throwawayemailaddress.com
mailnesia.com
getairmail.com
mytemp.email
fake-mail.com
mail-temp.com
tempail.com
tempomail.fr
tempinbox.com
tempmailaddress.com
tempmailer.com
tempmailer.de
temporaryinbox.com
temporaryemail.net
mailcatch.com
tempemail.net
mintemail.com
notmailinator.com
spamgourmet.com
spam4.me
spambox.us
spamfree24.org
mailsac.com
maildu.de
harakirimail.com
mailexpire.com
jetable.org
kurzepost.de
wegwerfmail.de
wegwerfemail.de
mytrashmail.com
anonbox.net
bugmenot.com
deadaddress.com
devnullmail.com
dodgit.com
emailsensei.com
explodemail.com
getonemail.com
incognitomail.com
killmail.net
maileater.com
mailnull.com
meltmail.com
neverbox.com
nospammail.net
oneoffemail.com
pookmail.com
quickinbox.com
rejectmail.com
selfdestructingmail.com
snakemail.com
sneakemail.com
sofort-mail.de
spamavert.com
spamcannon.com
spamhole.com
spaml.com
tempalias.com
willselfdestruct.com
zoemail.org
`
