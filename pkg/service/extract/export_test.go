package extract

var ResponseSchema = responseSchema
