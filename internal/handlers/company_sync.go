package handlers

import (
	"context"
	"encoding/json"
	"log"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
)

// CompanyStore is the slice of the job-side store the company sync needs.
type CompanyStore interface {
	UpsertCompany(ctx context.Context, data events.CompanyData) error
}

// CompanySync mirrors company creations and updates into the job service's
// store. The upsert keyed by companyId makes replays converge.
func CompanySync(companies CompanyStore) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.CompanySyncEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed company sync payload: %v", err)
		}

		if ev.Company.CompanyID == "" || ev.Company.Name == "" {
			return consumer.Fatalf("company sync event %s missing companyId or name", ev.EventID)
		}

		if err := companies.UpsertCompany(ctx, ev.Company); err != nil {
			return err
		}

		if ev.EventType == events.TypeCompanyCreated {
			log.Printf("[CompanySync] created company %s (%s)", ev.Company.Name, ev.Company.CompanyID)
		} else {
			log.Printf("[CompanySync] updated company %s (%s)", ev.Company.Name, ev.Company.CompanyID)
		}
		return nil
	}
}
