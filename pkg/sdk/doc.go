// Package cityvec embeds the city similarity index in a Go program.
//
// The client ingests the GeoNames dumps into a relational store, joins the
// catalog of selected countries, encodes it once with the given model and
// ranks cities by cosine similarity to free-form names:
//
//	client, _ := cityvec.New(ctx,
//	    cityvec.WithSQLite("cityvec.db"),
//	    cityvec.WithSources("countryInfo.txt", "cities15000.txt", "admin1CodesASCII.txt"),
//	    cityvec.WithEmbedder(myModel),
//	)
//	defer client.Close()
//	matches, _ := client.Query(ctx, "Moskva", 3)
//
// Every table is created on first use and loaded from the store afterwards.
package cityvec
