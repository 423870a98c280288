// controllers/domain_controller.go
package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/likexian/whois"

	"mailscout/discovery"
	"mailscout/utils"
)

type DomainController struct {
	Resolver discovery.MXResolver
	Logger   *log.Logger
}

func NewDomainController(resolver discovery.MXResolver, logger *log.Logger) *DomainController {
	return &DomainController{
		Resolver: resolver,
		Logger:   logger,
	}
}

// CheckDomain reports whether a domain can receive mail at all: MX presence,
// the primary exchanger, and whether the domain is a disposable-mail
// provider. Pass whois=true for the raw registration record.
func (dm *DomainController) CheckDomain(c *fiber.Ctx) error {
	domain := discovery.NormalizeDomain(c.Query("domain"))
	if domain == "" || !strings.Contains(domain, ".") {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "A valid domain query parameter is required", nil)
	}

	result := fiber.Map{
		"domain":     domain,
		"disposable": discovery.IsDisposableDomain(domain),
	}

	host, err := dm.Resolver.LookupPrimaryMX(c.Context(), domain)
	switch {
	case err == nil:
		result["has_mx"] = true
		result["primary_mx"] = host
	case errors.Is(err, discovery.ErrNoMXRecords):
		result["has_mx"] = false
		result["detail"] = "No MX records found"
	case errors.Is(err, discovery.ErrDomainNotFound):
		result["has_mx"] = false
		result["detail"] = "Domain does not exist"
	default:
		result["has_mx"] = nil
		result["detail"] = "DNS lookup failed"
	}

	if c.QueryBool("whois", false) {
		if whoisInfo, err := whois.Whois(domain); err == nil {
			result["whois"] = whoisInfo
		} else {
			dm.Logger.Printf("WHOIS lookup failed for %s: %v", domain, err)
		}
	}

	return c.JSON(result)
}
