package catalog

import (
	"context"

	"github.com/brstocks/mercado/internal/models"
)

// defaultSymbols is the built-in B3 listing used to seed an empty
// catalog at startup.
var defaultSymbols = []models.CatalogSymbol{
	{Symbol: "PETR3.SA", Name: "Petrobras ON", Sector: "Energy", Currency: "BRL"},
	{Symbol: "PETR4.SA", Name: "Petrobras PN", Sector: "Energy", Currency: "BRL"},
	{Symbol: "VALE3.SA", Name: "Vale ON", Sector: "Basic Materials", Currency: "BRL"},
	{Symbol: "ITUB4.SA", Name: "Itau Unibanco PN", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "BBDC4.SA", Name: "Bradesco PN", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "BBAS3.SA", Name: "Banco do Brasil ON", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "ABEV3.SA", Name: "Ambev ON", Sector: "Consumer Defensive", Currency: "BRL"},
	{Symbol: "WEGE3.SA", Name: "WEG ON", Sector: "Industrials", Currency: "BRL"},
	{Symbol: "MGLU3.SA", Name: "Magazine Luiza ON", Sector: "Consumer Cyclical", Currency: "BRL"},
	{Symbol: "LREN3.SA", Name: "Lojas Renner ON", Sector: "Consumer Cyclical", Currency: "BRL"},
	{Symbol: "B3SA3.SA", Name: "B3 ON", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "RENT3.SA", Name: "Localiza ON", Sector: "Industrials", Currency: "BRL"},
	{Symbol: "SUZB3.SA", Name: "Suzano ON", Sector: "Basic Materials", Currency: "BRL"},
	{Symbol: "GGBR4.SA", Name: "Gerdau PN", Sector: "Basic Materials", Currency: "BRL"},
	{Symbol: "CSNA3.SA", Name: "CSN ON", Sector: "Basic Materials", Currency: "BRL"},
	{Symbol: "USIM5.SA", Name: "Usiminas PNA", Sector: "Basic Materials", Currency: "BRL"},
	{Symbol: "EMBR3.SA", Name: "Embraer ON", Sector: "Industrials", Currency: "BRL"},
	{Symbol: "AZUL4.SA", Name: "Azul PN", Sector: "Industrials", Currency: "BRL"},
	{Symbol: "VIVT3.SA", Name: "Telefonica Brasil ON", Sector: "Communication Services", Currency: "BRL"},
	{Symbol: "TIMS3.SA", Name: "TIM ON", Sector: "Communication Services", Currency: "BRL"},
	{Symbol: "ELET3.SA", Name: "Eletrobras ON", Sector: "Utilities", Currency: "BRL"},
	{Symbol: "ELET6.SA", Name: "Eletrobras PNB", Sector: "Utilities", Currency: "BRL"},
	{Symbol: "SBSP3.SA", Name: "Sabesp ON", Sector: "Utilities", Currency: "BRL"},
	{Symbol: "CMIG4.SA", Name: "Cemig PN", Sector: "Utilities", Currency: "BRL"},
	{Symbol: "CPLE6.SA", Name: "Copel PNB", Sector: "Utilities", Currency: "BRL"},
	{Symbol: "RADL3.SA", Name: "Raia Drogasil ON", Sector: "Consumer Defensive", Currency: "BRL"},
	{Symbol: "RAIL3.SA", Name: "Rumo ON", Sector: "Industrials", Currency: "BRL"},
	{Symbol: "PRIO3.SA", Name: "PetroRio ON", Sector: "Energy", Currency: "BRL"},
	{Symbol: "HAPV3.SA", Name: "Hapvida ON", Sector: "Healthcare", Currency: "BRL"},
	{Symbol: "RDOR3.SA", Name: "Rede D'Or ON", Sector: "Healthcare", Currency: "BRL"},
	{Symbol: "BPAC11.SA", Name: "BTG Pactual UNT", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "ITSA4.SA", Name: "Itausa PN", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "SANB11.SA", Name: "Santander Brasil UNT", Sector: "Financial Services", Currency: "BRL"},
	{Symbol: "KLBN11.SA", Name: "Klabin UNT", Sector: "Basic Materials", Currency: "BRL"},
	{Symbol: "CSAN3.SA", Name: "Cosan ON", Sector: "Energy", Currency: "BRL"},
	{Symbol: "UGPA3.SA", Name: "Ultrapar ON", Sector: "Energy", Currency: "BRL"},
	{Symbol: "EQTL3.SA", Name: "Equatorial ON", Sector: "Utilities", Currency: "BRL"},
	{Symbol: "TOTS3.SA", Name: "Totvs ON", Sector: "Technology", Currency: "BRL"},
	{Symbol: "LWSA3.SA", Name: "Locaweb ON", Sector: "Technology", Currency: "BRL"},
	{Symbol: "CYRE3.SA", Name: "Cyrela ON", Sector: "Real Estate", Currency: "BRL"},
}

// SeedIfEmpty loads the built-in listing when the catalog has no entries.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if err := s.Upsert(ctx, defaultSymbols); err != nil {
		return err
	}
	s.logger.Info().Int("symbols", len(defaultSymbols)).Msg("Seeded symbol catalog")
	return nil
}
