// Package hanaihang embeds unified mall and store search in a Go program,
// backed by Redis/Valkey or an in-process store.
//
// A single call searches malls and stores by name, merges both result sets
// and ranks them by distance from an optional origin:
//
//	client, _ := hanaihang.New(ctx, hanaihang.WithRedis("localhost:6379", ""))
//	defer client.Close()
//
//	results := client.Search(ctx, "central",
//	    hanaihang.Near(13.7563, 100.5018),
//	    hanaihang.Limit(20),
//	)
//
// Catalog writes recompute the search fields and drop cached results:
//
//	_ = client.UpsertMall(ctx, hanaihang.Mall{ID: "central-rama9", Name: "Central Rama 9"})
//	items, _ := client.Import(ctx, fixtureFile)
package hanaihang
