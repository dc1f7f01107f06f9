// Package asyncx holds the small set of concurrency helpers the handlers
// use: futures for independent lookups inside one request, AllSettled for
// fan-out checks, and Detach for fire-and-forget work such as emails.
//
//	userF := asyncx.Run(ctx, loadUser)
//	companiesF := asyncx.Run(ctx, loadCompanies)
//	u, err := userF.Await()
//	cs, err := companiesF.Await()
package asyncx
