package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for catalog items.
const DefaultIndexName = "fashion_products"

// buildIndexMapping returns the JSON mapping for the catalog index. Text
// fields use a French analyzer since queries end in a French phrase.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "french_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "french_elision", "french_stop", "french_stemmer"]
        }
      },
      "filter": {
        "french_elision": {
          "type": "elision",
          "articles_case": true,
          "articles": ["l", "m", "t", "qu", "n", "s", "j", "d", "c"]
        },
        "french_stop": {
          "type": "stop",
          "stopwords": "_french_"
        },
        "french_stemmer": {
          "type": "stemmer",
          "language": "light_french"
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":            { "type": "keyword" },
      "title":         { "type": "text", "analyzer": "french_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "brand":         { "type": "text", "analyzer": "french_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "category":      { "type": "text", "analyzer": "french_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "color":         { "type": "text", "analyzer": "french_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "description":   { "type": "text", "analyzer": "french_analyzer" },
      "url":           { "type": "keyword", "index": false },
      "image_url":     { "type": "keyword", "index": false },
      "thumbnail_url": { "type": "keyword", "index": false },
      "source":        { "type": "keyword" },
      "tags":          { "type": "text", "analyzer": "french_analyzer", "fields": { "keyword": { "type": "keyword" } } }
    }
  }
}`
}
